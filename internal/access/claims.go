package access

// Claims is the identity payload decoded from a bearer token. It is the
// single "current user" value threaded through every authorization check;
// handlers never re-fetch the account from the database for gating
// decisions. The trade-off is documented on the JWT middleware: a
// deactivated account keeps its access until the token expires.
type Claims struct {
	ID       uint64 // account id (users.id)
	Username string // unique username, also the token subject
	Email    string // account email
	Role     Role   // one of the closed role set
	IsActive bool   // active flag captured at issue time
}
