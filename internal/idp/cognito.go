package idp

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/hitoshi/manabu/internal/model"
)

// CognitoConfig はCognitoプロバイダーの設定。
type CognitoConfig struct {
	Region   string
	ClientID string
}

// cognitoAPI はSDKクライアントのうち使用する操作のサブセット。
// テスト時にフェイクを注入するための抽象化。
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, in *cognitoidentityprovider.ResendConfirmationCodeInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ResendConfirmationCodeOutput, error)
	ForgotPassword(ctx context.Context, in *cognitoidentityprovider.ForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *cognitoidentityprovider.ConfirmForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error)
	GlobalSignOut(ctx context.Context, in *cognitoidentityprovider.GlobalSignOutInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error)
}

// CognitoProvider はAWS Cognito User Poolによる認証を提供する。
// USER_PASSWORD_AUTHフローを使用する。
type CognitoProvider struct {
	config CognitoConfig
	client cognitoAPI
	clock  func() time.Time
}

// NewCognitoProvider はCognitoProviderを生成する。
// AWS SDKのデフォルト設定チェーンからリージョンを上書きして接続する。
func NewCognitoProvider(ctx context.Context, config CognitoConfig) (*CognitoProvider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &CognitoProvider{
		config: config,
		client: cognitoidentityprovider.NewFromConfig(awsCfg),
		clock:  time.Now,
	}, nil
}

// SignIn はUSER_PASSWORD_AUTHフローで認証し、トークン一式を返す。
func (p *CognitoProvider) SignIn(ctx context.Context, email, password string) (*model.Tokens, error) {
	out, err := p.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.config.ClientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, MapError(err)
	}

	tokens, err := p.tokensFromResult(out.AuthenticationResult)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Refresh はREFRESH_TOKEN_AUTHフローで新しいトークン一式を取得する。
// CognitoはリフレッシュレスポンスにRefreshTokenを含めないため、
// 返り値のRefreshTokenは空になる。
func (p *CognitoProvider) Refresh(ctx context.Context, refreshToken string) (*model.Tokens, error) {
	out, err := p.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(p.config.ClientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return nil, MapError(err)
	}

	tokens, err := p.tokensFromResult(out.AuthenticationResult)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// SignUp は新規アカウントを登録する。
// email属性とpreferred_username属性を付与する。
func (p *CognitoProvider) SignUp(ctx context.Context, email, password, preferredUsername string) error {
	attrs := []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(email)},
	}
	if preferredUsername != "" {
		attrs = append(attrs, types.AttributeType{
			Name:  aws.String("preferred_username"),
			Value: aws.String(preferredUsername),
		})
	}

	_, err := p.client.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:       aws.String(p.config.ClientID),
		Username:       aws.String(email),
		Password:       aws.String(password),
		UserAttributes: attrs,
	})
	if err != nil {
		return MapError(err)
	}
	return nil
}

// ConfirmSignUp は確認コードでアカウントを有効化する。
func (p *CognitoProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := p.client.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(p.config.ClientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return MapError(err)
	}
	return nil
}

// ResendConfirmationCode は確認コードを再送信する。
func (p *CognitoProvider) ResendConfirmationCode(ctx context.Context, email string) error {
	_, err := p.client.ResendConfirmationCode(ctx, &cognitoidentityprovider.ResendConfirmationCodeInput{
		ClientId: aws.String(p.config.ClientID),
		Username: aws.String(email),
	})
	if err != nil {
		return MapError(err)
	}
	return nil
}

// ForgotPassword はパスワードリセットフローを開始する。
func (p *CognitoProvider) ForgotPassword(ctx context.Context, email string) error {
	_, err := p.client.ForgotPassword(ctx, &cognitoidentityprovider.ForgotPasswordInput{
		ClientId: aws.String(p.config.ClientID),
		Username: aws.String(email),
	})
	if err != nil {
		return MapError(err)
	}
	return nil
}

// ConfirmForgotPassword は確認コードで新しいパスワードを設定する。
func (p *CognitoProvider) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	_, err := p.client.ConfirmForgotPassword(ctx, &cognitoidentityprovider.ConfirmForgotPasswordInput{
		ClientId:         aws.String(p.config.ClientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
	})
	if err != nil {
		return MapError(err)
	}
	return nil
}

// SignOut は全デバイスのIdPセッションを無効化する。
func (p *CognitoProvider) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.client.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return MapError(err)
	}
	return nil
}

// tokensFromResult は認証結果からトークン一式を組み立てる。
func (p *CognitoProvider) tokensFromResult(result *types.AuthenticationResultType) (*model.Tokens, error) {
	if result == nil || result.AccessToken == nil {
		return nil, model.NewUnknownError("EmptyAuthenticationResult")
	}

	tokens := &model.Tokens{
		AccessToken: aws.ToString(result.AccessToken),
		IDToken:     aws.ToString(result.IdToken),
		ExpiresAt:   p.clock().Add(time.Duration(result.ExpiresIn) * time.Second),
	}
	if result.RefreshToken != nil {
		tokens.RefreshToken = aws.ToString(result.RefreshToken)
	}
	return tokens, nil
}

// compile-time interface check
var _ Provider = (*CognitoProvider)(nil)
