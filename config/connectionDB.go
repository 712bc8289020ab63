package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"outdoortracker/internal/entity"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ConnectionDb() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disable prepared statements completely
	}), &gorm.Config{
		PrepareStmt: false,
	})
	if err != nil {
		log.Fatalf("error connect to database %s", err)
	}
	return db
}

// enumTypes are the Postgres enum types the entity columns reference.
// They have to exist before AutoMigrate creates the tables.
var enumTypes = []struct {
	name   string
	values []string
}{
	{"user_role", []string{
		string(entity.UserRoleUser),
		string(entity.UserRoleAdmin),
	}},
	{"verification_type", []string{
		string(entity.EmailVerify),
		string(entity.PasswordReset),
	}},
	{"audit_action", []string{
		string(entity.AuditLoginSuccess),
		string(entity.AuditLoginFailed),
		string(entity.AuditLogout),
		string(entity.AuditPasswordReset),
		string(entity.AuditUserApproved),
		string(entity.AuditUserActivated),
		string(entity.AuditUserDeactivated),
		string(entity.AuditUserDeleted),
	}},
}

// enumDDL emits a CREATE TYPE guarded against the type already existing;
// Postgres has no CREATE TYPE IF NOT EXISTS.
func enumDDL(name string, values []string) string {
	return fmt.Sprintf(
		"DO $$ BEGIN CREATE TYPE %s AS ENUM ('%s'); EXCEPTION WHEN duplicate_object THEN NULL; END $$;",
		name, strings.Join(values, "', '"))
}

// Migrate keeps the schema in step with the entities. Safe to run on
// every start; gorm only applies the delta.
func Migrate(db *gorm.DB) error {
	for _, enum := range enumTypes {
		if err := db.Exec(enumDDL(enum.name, enum.values)).Error; err != nil {
			return err
		}
	}
	return db.AutoMigrate(
		&entity.User{},
		&entity.Location{},
		&entity.VerificationToken{},
		&entity.Session{},
		&entity.MFASecret{},
		&entity.AuditLog{},
	)
}
