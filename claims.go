package tripauth

import (
	"github.com/golang-jwt/jwt/v5"
)

// DisplayClaims carries the identity fields the UI renders immediately after
// login, decoded from the ID token without signature verification. They are
// display hints only and must never gate authorization.
type DisplayClaims struct {
	Subject    string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
}

// DecodeDisplayClaims extracts display fields from an ID token. The token is
// parsed unverified; the directory already vouched for it when it was issued
// and the caller only needs the payload.
func DecodeDisplayClaims(idToken string) (DisplayClaims, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return DisplayClaims{}, err
	}
	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}
	return DisplayClaims{
		Subject:    str("sub"),
		Email:      str("email"),
		Name:       str("name"),
		GivenName:  str("given_name"),
		FamilyName: str("family_name"),
	}, nil
}
