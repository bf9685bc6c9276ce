package common

// UserProjection is the public identity shape embedded in every chat payload.
type UserProjection struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// UnknownUser stands in for an id the identity provider can no longer resolve.
func UnknownUser(id string) UserProjection {
	return UserProjection{ID: id, Username: "unknown"}
}
