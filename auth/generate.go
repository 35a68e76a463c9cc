package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"smartid-server-go/models"
)

const passwordChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GeneratedPasswordLength is the length of passwords handed out at enrollment.
const GeneratedPasswordLength = 12

// GeneratePassword returns a random alphanumeric password.
func GeneratePassword() (string, error) {
	buf := make([]byte, GeneratedPasswordLength)
	max := big.NewInt(int64(len(passwordChars)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passwordChars[n.Int64()]
	}
	return string(buf), nil
}

// IDPrefix returns the letter user IDs of role start with.
func IDPrefix(role models.Role) string {
	switch role {
	case models.RoleStudent:
		return "S"
	case models.RoleProfessor:
		return "P"
	}
	return "A"
}

// GenerateUserID returns an ID such as S4821: the role prefix followed by a
// random number between 1000 and 9999.
func GenerateUserID(role models.Role) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", IDPrefix(role), n.Int64()+1000), nil
}
