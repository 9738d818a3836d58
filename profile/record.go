// Package profile is the authoritative store for per-user MFA configuration
// and the short-lived codes that gate changes to it. Records live in redis
// under a compact versioned binary encoding.
package profile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	authProfileRecordVersion1 = 1
)

// Method is the MFA method configured on a profile.
type Method byte

const (
	MethodNone  Method = 0
	MethodTOTP  Method = 1
	MethodEmail Method = 2
)

func (m Method) String() string {
	switch m {
	case MethodTOTP:
		return "TOTP"
	case MethodEmail:
		return "EMAIL"
	}
	return "NONE"
}

// ParseMethod maps the wire name of a method back to its byte value.
// Unknown names come back as MethodNone.
func ParseMethod(name string) Method {
	switch name {
	case "TOTP":
		return MethodTOTP
	case "EMAIL":
		return MethodEmail
	}
	return MethodNone
}

// UserAuthProfile is one user's MFA record. The Pending* fields hold an
// in-flight enrollment and the Challenge* fields an in-flight login code;
// the two groups are mutually exclusive and every write that sets one group
// clears the other.
type UserAuthProfile struct {
	UserID         string
	Email          string
	MFAEnabled     bool
	Method         Method
	SecondaryEmail string

	PendingEmail      string
	PendingCode       string
	PendingExpiresAt  int64
	PendingTOTPSecret string

	ChallengeCode      string
	ChallengeExpiresAt int64

	UpdatedAt int64
}

// ClearPending drops any in-flight enrollment state.
func (p *UserAuthProfile) ClearPending() {
	p.PendingEmail = ""
	p.PendingCode = ""
	p.PendingExpiresAt = 0
	p.PendingTOTPSecret = ""
}

// ClearChallenge drops any in-flight login code.
func (p *UserAuthProfile) ClearChallenge() {
	p.ChallengeCode = ""
	p.ChallengeExpiresAt = 0
}

func encodeAuthProfile(record *UserAuthProfile) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(authProfileRecordVersion1)

	var flags byte
	if record.MFAEnabled {
		flags |= 1
	}
	buf.WriteByte(flags)
	buf.WriteByte(byte(record.Method))

	if err := binary.Write(&buf, binary.BigEndian, record.PendingExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ChallengeExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.UpdatedAt); err != nil {
		return nil, err
	}

	for _, field := range []string{
		record.UserID,
		record.Email,
		record.SecondaryEmail,
		record.PendingEmail,
		record.PendingCode,
		record.PendingTOTPSecret,
		record.ChallengeCode,
	} {
		if len(field) > 65535 {
			return nil, errors.New("auth profile field length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeAuthProfile(data []byte) (*UserAuthProfile, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != authProfileRecordVersion1 {
		return nil, errors.New("invalid auth profile version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	method, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &UserAuthProfile{
		MFAEnabled: flags&1 != 0,
		Method:     Method(method),
	}
	if err := binary.Read(reader, binary.BigEndian, &record.PendingExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ChallengeExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.UpdatedAt); err != nil {
		return nil, err
	}

	for _, field := range []*string{
		&record.UserID,
		&record.Email,
		&record.SecondaryEmail,
		&record.PendingEmail,
		&record.PendingCode,
		&record.PendingTOTPSecret,
		&record.ChallengeCode,
	} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}
