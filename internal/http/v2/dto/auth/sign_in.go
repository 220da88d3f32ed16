// Package auth contiene DTOs de la respuesta de sign-in que ve el cliente.
package auth

import "encoding/json"

// PublicAuthResponse es el body que recibe el cliente tras un sign-in o refresh.
//
//	{"user": {...}, "access_token": "<token>", "expiry": "<string>"}
//
// User es el "data" del provider sin modificar. Expiry se omite si el provider
// no envió el header expiry.
type PublicAuthResponse struct {
	User        json.RawMessage `json:"user"`
	AccessToken string          `json:"access_token"`
	Expiry      *string         `json:"expiry,omitempty"`
}

// SubjectRecord describe el registro público del usuario tal como lo define
// el provider. El gateway no lo interpreta; existe para clientes y tests.
type SubjectRecord struct {
	ID                  int64  `json:"id"`
	UID                 string `json:"uid"`
	Email               string `json:"email"`
	Name                string `json:"name"`
	Provider            string `json:"provider"`
	AllowPasswordChange bool   `json:"allow_password_change"`
}
