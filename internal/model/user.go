package model

// User is a tracked collection owner.
type User struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	UserID    string `json:"userid"`
	AltName   string `json:"altname"`
	Color     string `json:"color"`
	AvatarURL string `json:"avatarUrl"`
}

// ApplyDefaults fills display fields that were left empty.
func (u *User) ApplyDefaults() {
	if u.Name == "" {
		u.Name = u.Username
	}
	if u.AltName == "" {
		u.AltName = u.Username
	}
	if u.Color == "" {
		u.Color = "gray"
	}
}
