package user

// User is a locally-known mailbox owner, consulted by maildirsink to
// back VRFY and to decide where an accepted message should be delivered.
// Adapted from the teacher's user.User, which paired a name with a
// smtp.MailAddress; here the local part alone is the lookup key, since
// VerifyUser/delivery both operate on a single domain's mailbox set.
type User struct {
	Name     string
	Password string
}

func (u *User) CheckPassword(password string) bool {
	return password == u.Password
}
