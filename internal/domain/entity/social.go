package entity

// SocialProfile holds follower stats and public profile records for an address.
type SocialProfile struct {
	Followers int               `json:"followers"`
	Following int               `json:"following"`
	EnsName   string            `json:"ensName,omitempty"`
	AvatarURL string            `json:"avatarUrl,omitempty"`
	Records   map[string]string `json:"records,omitempty"`
}

// IsEmpty reports whether the profile carries no information at all.
func (p SocialProfile) IsEmpty() bool {
	return p.Followers == 0 && p.Following == 0 && p.EnsName == "" && len(p.Records) == 0
}
