package utils

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt work factor used for stored credentials.
const PasswordCost = 12

// HashPassword hashes a given password using bcrypt.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = PasswordCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain password with its hashed version.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
