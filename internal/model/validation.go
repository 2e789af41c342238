package model

import "time"

type ModelValidationLog struct {
	ID              string    `db:"id" json:"id"`
	App             string    `db:"app" json:"app"`
	Model           string    `db:"model" json:"model"`
	ErrorLevel      int       `db:"error_level" json:"error_level"`
	ObjectValidator string    `db:"object_validator" json:"object_validator"`
	ValidationCheck string    `db:"validation_check" json:"validation_check"`
	ErrorMessage    string    `db:"error_message" json:"error_message"`
	LastSeen        time.Time `db:"last_seen" json:"last_seen"`
}
