package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/agora-board/agora/config"
	"github.com/agora-board/agora/models"
	"github.com/agora-board/agora/utils"
)

const (
	tokenLifetime = 72 * time.Hour
	stateLifetime = 10 * time.Minute
)

// AuthController handles local credentials and federated login. Each provider
// resolves to one (provider, provider_id) identity row.
type AuthController struct {
	db *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type registerRequest struct {
	Nickname string `json:"nickname" binding:"required,min=2,max=30"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type loginRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /auth/register.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid register payload")
		return
	}

	nickname := strings.TrimSpace(req.Nickname)
	var count int64
	if err := a.db.WithContext(ctx.Request.Context()).
		Model(&models.User{}).Where("nickname = ?", nickname).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40902, "nickname already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		return
	}

	user := models.User{
		Nickname:     nickname,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Provider:     "local",
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40902, "nickname already taken")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "register success", gin.H{"user_id": user.ID})
}

// Login handles POST /auth/login.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid login payload")
		return
	}

	var user models.User
	err := a.db.WithContext(ctx.Request.Context()).
		Where("nickname = ? AND provider = ?", strings.TrimSpace(req.Nickname), "local").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid credentials")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid credentials")
		return
	}

	a.issueToken(ctx, &user)
}

// Logout handles POST /auth/logout. The presented token is revoked until its
// natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "missing token")
		return
	}
	token := strings.TrimSpace(parts[1])

	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(tokenLifetime)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logout success"})
}

// Me handles GET /auth/me.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		return
	}

	utils.Success(ctx, gin.H{
		"user_id":    user.ID,
		"nickname":   user.Nickname,
		"email":      user.Email,
		"provider":   user.Provider,
		"avatar_url": user.AvatarURL,
	})
}

// OAuthRedirect handles GET /auth/oauth/:provider/login. It hands the client
// the provider authorization URL along with a single-use state nonce.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	conf, ok := oauthConfig(ctx.Param("provider"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "unsupported provider")
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, stateLifetime)
	utils.Success(ctx, gin.H{
		"auth_url": conf.AuthCodeURL(state),
		"state":    state,
	})
}

// OAuthCallback handles GET /auth/oauth/:provider/callback. A first login
// creates the identity row; subsequent logins reuse it.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := ctx.Param("provider")
	conf, ok := oauthConfig(provider)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "unsupported provider")
		return
	}

	state := ctx.Query("state")
	if state == "" || !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid oauth state")
		return
	}

	code := ctx.Query("code")
	if code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40006, "missing authorization code")
		return
	}

	token, err := conf.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Sugar.Warnw("oauth code exchange failed", "provider", provider, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50201, "oauth exchange failed")
		return
	}

	profile, err := fetchProviderProfile(ctx.Request.Context(), provider, conf, token)
	if err != nil {
		utils.Sugar.Warnw("oauth profile fetch failed", "provider", provider, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50202, "oauth profile fetch failed")
		return
	}

	user, err := a.findOrCreateOAuthUser(ctx.Request.Context(), provider, profile)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		return
	}

	a.issueToken(ctx, user)
}

func (a *AuthController) issueToken(ctx *gin.Context, user *models.User) {
	token, err := utils.GenerateToken(user.ID, user.Nickname, tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		return
	}
	utils.Success(ctx, gin.H{
		"token":    token,
		"user_id":  user.ID,
		"nickname": user.Nickname,
	})
}

// providerProfile is the normalized identity fetched from a provider API.
type providerProfile struct {
	ID        string
	Nickname  string
	Email     string
	AvatarURL string
}

func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, profile *providerProfile) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, profile.ID).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	nickname, err := a.ensureUniqueNickname(ctx, profile.Nickname, provider)
	if err != nil {
		return nil, err
	}

	user = models.User{
		Nickname:   nickname,
		Email:      profile.Email,
		Provider:   provider,
		ProviderID: profile.ID,
		AvatarURL:  profile.AvatarURL,
	}
	if err := a.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent first login for the same identity
			lookupErr := a.db.WithContext(ctx).
				Where("provider = ? AND provider_id = ?", provider, profile.ID).
				First(&user).Error
			if lookupErr == nil {
				return &user, nil
			}
		}
		return nil, err
	}
	return &user, nil
}

// ensureUniqueNickname appends a short suffix when the provider nickname is
// taken or empty.
func (a *AuthController) ensureUniqueNickname(ctx context.Context, base, provider string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = provider + "_user"
	}

	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		var count int64
		if err := a.db.WithContext(ctx).
			Model(&models.User{}).Where("nickname = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%s", base, uuid.NewString()[:8])
	}
	return candidate, nil
}

var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:  "https://kauth.kakao.com/oauth/authorize",
	TokenURL: "https://kauth.kakao.com/oauth/token",
}

func oauthConfig(provider string) (*oauth2.Config, bool) {
	cfg := config.Get()
	redirect := fmt.Sprintf("%s/api/v1/auth/oauth/%s/callback", cfg.OAuthRedirectBase, provider)

	switch provider {
	case "kakao":
		if cfg.KakaoClientID == "" {
			return nil, false
		}
		return &oauth2.Config{
			ClientID:     cfg.KakaoClientID,
			ClientSecret: cfg.KakaoClientSecret,
			Endpoint:     kakaoEndpoint,
			RedirectURL:  redirect,
		}, true
	case "github":
		if cfg.GitHubClientID == "" {
			return nil, false
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"read:user", "user:email"},
		}, true
	case "google":
		if cfg.GoogleClientID == "" {
			return nil, false
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirect,
			Scopes:       []string{"openid", "profile", "email"},
		}, true
	default:
		return nil, false
	}
}

func fetchProviderProfile(ctx context.Context, provider string, conf *oauth2.Config, token *oauth2.Token) (*providerProfile, error) {
	client := conf.Client(ctx, token)
	switch provider {
	case "kakao":
		return fetchKakaoProfile(client)
	case "github":
		return fetchGitHubProfile(client)
	case "google":
		return fetchGoogleProfile(client)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}

func fetchKakaoProfile(client *http.Client) (*providerProfile, error) {
	var payload struct {
		ID           int64 `json:"id"`
		KakaoAccount struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := getJSON(client, "https://kapi.kakao.com/v2/user/me", &payload); err != nil {
		return nil, err
	}
	if payload.ID == 0 {
		return nil, errors.New("kakao profile missing id")
	}
	return &providerProfile{
		ID:        fmt.Sprintf("%d", payload.ID),
		Nickname:  payload.KakaoAccount.Profile.Nickname,
		Email:     payload.KakaoAccount.Email,
		AvatarURL: payload.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}

func fetchGitHubProfile(client *http.Client) (*providerProfile, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}
	if payload.ID == 0 {
		return nil, errors.New("github profile missing id")
	}
	nickname := payload.Name
	if nickname == "" {
		nickname = payload.Login
	}
	return &providerProfile{
		ID:        fmt.Sprintf("%d", payload.ID),
		Nickname:  nickname,
		Email:     payload.Email,
		AvatarURL: payload.AvatarURL,
	}, nil
}

func fetchGoogleProfile(client *http.Client) (*providerProfile, error) {
	var payload struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := getJSON(client, "https://www.googleapis.com/oauth2/v3/userinfo", &payload); err != nil {
		return nil, err
	}
	if payload.Sub == "" {
		return nil, errors.New("google profile missing subject")
	}
	return &providerProfile{
		ID:        payload.Sub,
		Nickname:  payload.Name,
		Email:     payload.Email,
		AvatarURL: payload.Picture,
	}, nil
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider API %s returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
