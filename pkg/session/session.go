package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ErrUnauthenticated is returned when no usable session exists.
var ErrUnauthenticated = errors.New("session: not signed in")

// User is the identity carried by the id_token.
type User struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Display returns the most readable identifier.
func (u User) Display() string {
	switch {
	case u.Name != "" && u.Email != "":
		return u.Name + " <" + u.Email + ">"
	case u.Email != "":
		return u.Email
	case u.Name != "":
		return u.Name
	}
	return u.Subject
}

// Session is a signed-in user and their token.
type Session struct {
	Token *oauth2.Token
	User  User
}

// Expired reports whether the access token has expired and cannot be
// refreshed.
func (s *Session) Expired() bool {
	if s == nil || s.Token == nil {
		return true
	}
	return !s.Token.Valid() && s.Token.RefreshToken == ""
}

// Record is the persisted form of a session. oauth2.Token does not
// serialise its extra fields, so the id_token is kept alongside.
type Record struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
}

func recordFrom(tok *oauth2.Token, idToken string) Record {
	return Record{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		IDToken:      idToken,
	}
}

func (r Record) token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		Expiry:       r.Expiry,
	}
}

// UserFromIDToken reads the identity claims of an id_token. The signature is
// not checked here; the token came straight from the identity provider over
// TLS and is only used for display.
func UserFromIDToken(raw string) (User, error) {
	if raw == "" {
		return User{}, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return User{}, err
	}
	user := User{}
	user.Subject, _ = claims["sub"].(string)
	user.Email, _ = claims["email"].(string)
	user.Name, _ = claims["name"].(string)
	if user.Name == "" {
		user.Name, _ = claims["preferred_username"].(string)
	}
	return user, nil
}

func idTokenOf(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	raw, _ := tok.Extra("id_token").(string)
	return raw
}
