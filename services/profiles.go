package services

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"
)

// Columns of a user that other accounts may see. Email and password hash are
// only ever returned to their owner.
var (
	employerColumns = []string{
		"id", "name", "phone", "role", "company_name",
		"location_city", "location_province", "created_at",
	}
	specialistColumns = []string{
		"id", "name", "phone", "role",
		"location_city", "location_province", "location_latitude", "location_longitude",
		"skills", "experience", "age", "education", "availability", "rating",
		"created_at", "updated_at",
	}
	contactColumns = []string{"id", "name", "role"}
)

// publicProfile restricts a preload to cols
func publicProfile(cols []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select(cols)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern using ESCAPE '\'
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// jsonFragment is s as it appears inside a JSON string literal
func jsonFragment(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
