package models

import "golang.org/x/crypto/bcrypt"

// SetPassword stores a bcrypt hash of pwd.
func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// CheckPassword returns nil when pwd matches the stored hash.
func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// CanSignIn reports whether the account may obtain tokens: access granted
// and not deactivated.
func (u *User) CanSignIn() bool {
	return u.HasAccess && u.Status != UserInactive
}
