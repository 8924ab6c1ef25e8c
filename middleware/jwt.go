package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"familyfinance/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName 会话 cookie 名
const DefaultCookieName = "famfin_session"

const contextUserID = "userID"

// tokenIssuer 令牌签发方，解析时校验
const tokenIssuer = "familyfinance"

var (
	jwtSecret    []byte
	cookieName   = DefaultCookieName
	tokenTTL     = 24 * time.Hour
	secureCookie bool
)

// Claims 会话令牌载荷，sub 为用户 ID
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// InitJWT 读取密钥、cookie 名和有效期
func InitJWT(cfg *config.Config) {
	jwtSecret = []byte(cfg.JWT.Secret)
	cookieName = DefaultCookieName
	if cfg.JWT.CookieName != "" {
		cookieName = cfg.JWT.CookieName
	}
	tokenTTL = 24 * time.Hour
	if cfg.JWT.ExpireTime > 0 {
		tokenTTL = cfg.JWT.ExpireTime
	}
	secureCookie = cfg.Server.Mode == "release"
}

// TokenTTL 令牌有效期
func TokenTTL() time.Duration {
	return tokenTTL
}

// GenerateToken 签发 HS256 令牌
func GenerateToken(userID uint, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

// ParseToken 校验签名和有效期
func ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// tokenFromRequest 依次从 Authorization 头、会话 cookie、token 查询参数取令牌
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			return "", errors.New("malformed authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if ck, err := r.Cookie(cookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errors.New("missing token")
}

// UserFromRequest 从原始请求解析当前用户，供 websocket 握手使用
func UserFromRequest(r *http.Request) (uint, error) {
	token, err := tokenFromRequest(r)
	if err != nil {
		return 0, err
	}
	claims, err := ParseToken(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// JWTAuth 登录校验中间件
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := UserFromRequest(c.Request)
		if err != nil {
			abortWith(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		c.Set(contextUserID, userID)
		c.Next()
	}
}

// GetCurrentUserID 当前登录用户，未登录返回 0
func GetCurrentUserID(c *gin.Context) uint {
	if v, ok := c.Get(contextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// SetSessionCookie 写入会话 cookie
func SetSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, token, int(tokenTTL.Seconds()), "/", "", secureCookie, true)
}

// ClearSessionCookie 清除会话 cookie
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, "", -1, "/", "", secureCookie, true)
}
