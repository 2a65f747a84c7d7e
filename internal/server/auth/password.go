package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost trades login latency for offline brute-force resistance.
const bcryptCost = 12

// HashPassword hashes a raw password with bcrypt. The result embeds the
// salt and cost factor.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
