package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tripwell/tripauth/issuer"
	"github.com/tripwell/tripauth/profile"
	"github.com/tripwell/tripauth/profileapi"
)

func (s *Server) getProfile(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	record, err := s.store.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			// First touch: nothing stored yet, so the profile is the
			// token identity with MFA off. Nothing is written.
			c.JSON(http.StatusOK, profileapi.ProfileDTO{
				UserID:    userID,
				Email:     c.GetString(ctxUserEmail),
				MFAMethod: profile.MethodNone.String(),
			})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profileDTO(record))
}

func (s *Server) putProfile(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	var patch profileapi.ProfilePatchDTO
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("BAD_REQUEST", err.Error()))
		return
	}
	primaryEmail := c.GetString(ctxUserEmail)
	if patch.MFASecondaryEmail != nil && *patch.MFASecondaryEmail != "" &&
		strings.EqualFold(strings.TrimSpace(*patch.MFASecondaryEmail), strings.TrimSpace(primaryEmail)) {
		c.JSON(http.StatusBadRequest, errorBody(profileapi.ReasonSameEmail, "secondary email must differ from the primary email"))
		return
	}

	record, err := s.store.Mutate(c.Request.Context(), userID, func(p *profile.UserAuthProfile) error {
		if p.Email == "" {
			p.Email = primaryEmail
		}
		if patch.MFAEnabled != nil {
			p.MFAEnabled = *patch.MFAEnabled
		}
		if patch.MFAMethod != nil {
			p.Method = profile.ParseMethod(*patch.MFAMethod)
		}
		if patch.MFASecondaryEmail != nil {
			p.SecondaryEmail = *patch.MFASecondaryEmail
		}
		if !p.MFAEnabled || p.Method == profile.MethodNone {
			p.ClearPending()
			p.ClearChallenge()
		}
		return nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profileDTO(record))
}

func (s *Server) emailSetup(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	var req profileapi.EmailSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SecondaryEmail == "" {
		c.JSON(http.StatusBadRequest, errorBody("BAD_REQUEST", "secondary_email is required"))
		return
	}

	err := s.issuer.BeginEmailSetup(c.Request.Context(), userID, c.GetString(ctxUserEmail), req.SecondaryEmail)
	switch {
	case errors.Is(err, issuer.ErrSameEmail):
		c.JSON(http.StatusBadRequest, errorBody(profileapi.ReasonSameEmail, "secondary email must differ from the primary email"))
	case errors.Is(err, issuer.ErrMailDispatch):
		// The code is stored and valid; only the send failed.
		s.metrics.CodesIssued.WithLabelValues("setup").Inc()
		c.JSON(http.StatusOK, profileapi.AckResponse{Success: true, Warning: profileapi.ReasonMailDispatch})
	case err != nil:
		s.fail(c, err)
	default:
		s.metrics.CodesIssued.WithLabelValues("setup").Inc()
		c.JSON(http.StatusOK, profileapi.AckResponse{Success: true})
	}
}

func (s *Server) emailVerify(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	var req profileapi.CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusBadRequest, errorBody("BAD_REQUEST", "code is required"))
		return
	}

	purpose, err := s.issuer.VerifyCode(c.Request.Context(), userID, req.Code)
	label := strings.ToLower(purpose.String())
	switch {
	case errors.Is(err, issuer.ErrCodeMismatch):
		s.metrics.Verifications.WithLabelValues(label, "mismatch").Inc()
		c.JSON(http.StatusBadRequest, errorBody(profileapi.ReasonCodeMismatch, "verification code mismatch"))
	case errors.Is(err, issuer.ErrCodeExpired):
		s.metrics.Verifications.WithLabelValues(label, "expired").Inc()
		c.JSON(http.StatusBadRequest, errorBody(profileapi.ReasonCodeExpired, "verification code expired"))
	case errors.Is(err, issuer.ErrNoPendingCode):
		c.JSON(http.StatusBadRequest, errorBody(profileapi.ReasonNoPendingCode, "no verification pending"))
	case err != nil:
		s.fail(c, err)
	default:
		s.metrics.Verifications.WithLabelValues(label, "ok").Inc()
		c.JSON(http.StatusOK, profileapi.VerifyResponse{Verified: true, Purpose: purpose.String()})
	}
}

func (s *Server) emailChallenge(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	err := s.issuer.IssueLoginCode(c.Request.Context(), userID)
	switch {
	case errors.Is(err, issuer.ErrNotConfigured):
		c.JSON(http.StatusBadRequest, errorBody(profileapi.ReasonNotConfigured, "email mfa is not configured"))
	case errors.Is(err, issuer.ErrMailDispatch):
		s.metrics.CodesIssued.WithLabelValues("login").Inc()
		c.JSON(http.StatusOK, profileapi.AckResponse{Success: true, Warning: profileapi.ReasonMailDispatch})
	case err != nil:
		s.fail(c, err)
	default:
		s.metrics.CodesIssued.WithLabelValues("login").Inc()
		c.JSON(http.StatusOK, profileapi.AckResponse{Success: true})
	}
}

func (s *Server) totpSetup(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	prov, err := s.issuer.BeginTOTPSetup(c.Request.Context(), userID, c.GetString(ctxUserEmail))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profileapi.TOTPSetupDTO{
		Secret:     prov.Secret,
		OtpauthURL: prov.OtpauthURL,
		QRCode:     prov.QRCode,
	})
}

func (s *Server) totpVerify(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	var req profileapi.CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusBadRequest, errorBody("BAD_REQUEST", "code is required"))
		return
	}

	ok, fresh, err := s.issuer.VerifyTOTPSetup(c.Request.Context(), userID, req.Code)
	if errors.Is(err, issuer.ErrNoPendingCode) {
		c.JSON(http.StatusBadRequest, errorBody(profileapi.ReasonNoPendingCode, "no authenticator enrollment pending"))
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		// Mismatch voids the pending secret; hand back the replacement so
		// the client re-renders the QR.
		s.metrics.Verifications.WithLabelValues("totp_setup", "mismatch").Inc()
		c.JSON(http.StatusOK, profileapi.VerifyResponse{
			Verified: false,
			Setup: &profileapi.TOTPSetupDTO{
				Secret:     fresh.Secret,
				OtpauthURL: fresh.OtpauthURL,
				QRCode:     fresh.QRCode,
			},
		})
		return
	}
	s.metrics.Verifications.WithLabelValues("totp_setup", "ok").Inc()
	c.JSON(http.StatusOK, profileapi.VerifyResponse{Verified: true})
}

func (s *Server) disableMFA(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	if err := s.store.DisableMFA(c.Request.Context(), userID); err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.Disables.Inc()
	c.JSON(http.StatusOK, profileapi.AckResponse{Success: true})
}

func (s *Server) fail(c *gin.Context, err error) {
	s.log.Error("request failed",
		zap.String("request_id", c.GetString(ctxRequestID)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "internal error"))
}

func profileDTO(record *profile.UserAuthProfile) profileapi.ProfileDTO {
	return profileapi.ProfileDTO{
		UserID:            record.UserID,
		Email:             record.Email,
		MFAEnabled:        record.MFAEnabled,
		MFAMethod:         record.Method.String(),
		MFASecondaryEmail: record.SecondaryEmail,
	}
}
