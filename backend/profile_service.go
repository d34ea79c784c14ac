package backend

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// ProfileService は認証情報からユーザー情報を取得する
type ProfileService interface {
	FetchProfile(ctx context.Context, cred Credential) (*Profile, error)
}

// googleProfileService はGoogleのuserinfoエンドポイントを使う実装
type googleProfileService struct {
	endpoint string // テストや差し替え用。空の場合は既定のエンドポイント
}

// NewProfileService は新しいProfileServiceを作成します
func NewProfileService(endpoint string) ProfileService {
	return &googleProfileService{endpoint: endpoint}
}

// FetchProfile はアクセストークンをBearerとしてuserinfoを取得します
func (p *googleProfileService) FetchProfile(ctx context.Context, cred Credential) (*Profile, error) {
	if cred.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cred.AccessToken,
		TokenType:   "Bearer",
	})
	client := oauth2.NewClient(ctx, tokenSource)

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}

	srv, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create userinfo client: %w", err)
	}

	info, err := srv.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	if info.Email == "" {
		return nil, &MalformedResponseError{Source: "userinfo", Index: -1, Reason: "missing email"}
	}

	profile := &Profile{
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}
	if info.VerifiedEmail != nil {
		profile.VerifiedEmail = *info.VerifiedEmail
	}
	return profile, nil
}
