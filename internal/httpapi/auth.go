package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type signUpRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) handleSignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		respondError(c, http.StatusBadRequest, "please fill in all fields")
		return
	}
	if req.Password != req.ConfirmPassword {
		respondError(c, http.StatusBadRequest, "passwords do not match")
		return
	}

	session, err := s.ids.SignUp(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if err := s.accounts.Create(c.Request.Context(), session.User.ID, req.Username, session.User.Email); err != nil {
		s.log.Error("Failed to seed profile", zap.String("user_id", session.User.ID), zap.Error(err))
	}

	respond(c, session)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.ids.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, session)
}

func (s *Server) handleSignOut(c *gin.Context) {
	if err := s.ids.SignOut(c.Request.Context(), currentToken(c)); err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, gin.H{"signedOut": true})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		respondError(c, http.StatusBadRequest, "email is required")
		return
	}

	if err := s.ids.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, gin.H{"sent": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		respondError(c, http.StatusBadRequest, "token and password are required")
		return
	}

	if err := s.ids.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, gin.H{"reset": true})
}
