package service

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email     string
	Password  string
	IPAddress *string
	UserAgent *string
}

type LoginMFAInput struct {
	MFAToken  string
	Code      string
	IPAddress *string
	UserAgent *string
}

type LoginResult struct {
	AccessToken       string
	ExpiresIn         int64
	Role              string
	RefreshToken      string
	RefreshExpiresIn  int64
	MFARequired       bool
	MFAToken          string
	MFATokenExpiresIn int64
}
