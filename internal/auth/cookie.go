package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionCookieName はセッションCookieの名前。
const SessionCookieName = "soul_log.sid"

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	Secret string
	Domain string
	Secure bool
	MaxAge time.Duration
}

// CookieCodec はセッショントークンを署名付きCookieとして読み書きする。
// 値はSESSION_SECRETで署名され、改ざんされたCookieは空として扱う。
type CookieCodec struct {
	codec  *securecookie.SecureCookie
	config CookieConfig
}

// NewCookieCodec はCookieCodecを生成する。
func NewCookieCodec(config CookieConfig) *CookieCodec {
	hashKey := sha256.Sum256([]byte(config.Secret))
	codec := securecookie.New(hashKey[:], nil)
	codec.MaxAge(int(config.MaxAge / time.Second))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &CookieCodec{codec: codec, config: config}
}

// Write はセッショントークンをCookieに設定する。Max-Ageは毎回リセットされる。
func (c *CookieCodec) Write(w http.ResponseWriter, token string) error {
	encoded, err := c.codec.Encode(SessionCookieName, token)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, c.cookie(encoded, int(c.config.MaxAge/time.Second)))
	return nil
}

// Read はリクエストからセッショントークンを取り出す。
// Cookieが無い、または署名が不正な場合は空文字を返す。
func (c *CookieCodec) Read(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	var token string
	if err := c.codec.Decode(SessionCookieName, cookie.Value, &token); err != nil {
		return ""
	}
	return token
}

// Clear はセッションCookieを削除する。
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c *CookieCodec) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
