package models

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTiktok    Platform = "tiktok"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
)

// Platforms lists every platform a post may target.
var Platforms = []Platform{
	PlatformInstagram,
	PlatformTiktok,
	PlatformLinkedIn,
	PlatformTwitter,
	PlatformFacebook,
}

func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// DisplayName is the human readable platform name used in messages.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformInstagram:
		return "Instagram"
	case PlatformTiktok:
		return "TikTok"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformTwitter:
		return "Twitter"
	case PlatformFacebook:
		return "Facebook"
	}
	return string(p)
}
