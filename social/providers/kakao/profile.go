package kakao

import (
	"strconv"

	"github.com/goliatone/go-board-auth/social"
)

type kakaoUserInfo struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email           string `json:"email"`
		IsEmailVerified bool   `json:"is_email_verified"`
		IsEmailValid    bool   `json:"is_email_valid"`
		Profile         struct {
			Nickname          string `json:"nickname"`
			ProfileImageURL   string `json:"profile_image_url"`
			ThumbnailImageURL string `json:"thumbnail_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func mapProfile(info *kakaoUserInfo) *social.SocialProfile {
	if info == nil {
		return nil
	}

	account := info.KakaoAccount

	return &social.SocialProfile{
		ProviderUserID: strconv.FormatInt(info.ID, 10),
		Provider:       "kakao",
		Email:          account.Email,
		EmailVerified:  account.IsEmailVerified && account.IsEmailValid,
		Nickname:       account.Profile.Nickname,
		AvatarURL:      account.Profile.ProfileImageURL,
		Raw: map[string]any{
			"id":                info.ID,
			"email":             account.Email,
			"is_email_verified": account.IsEmailVerified,
			"nickname":          account.Profile.Nickname,
			"profile_image_url": account.Profile.ProfileImageURL,
		},
	}
}
