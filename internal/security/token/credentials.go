// Package token implementa el codec que empaqueta las tres credenciales del
// identity provider (access-token, client, uid) en un único bearer token opaco.
//
// El token NO está firmado ni cifrado: es solo un transporte reversible y
// seguro para headers. La autenticidad la valida el provider cuando recibe
// el triple decodificado.
package token

// Nombres fijos de los headers/keys que usa el provider.
// Son a la vez el nombre del header HTTP y la key dentro del JSON serializado.
const (
	HeaderAccessToken = "access-token"
	HeaderClient      = "client"
	HeaderUID         = "uid"
	HeaderExpiry      = "expiry"
)

// CredentialHeaders son los headers que forman un CredentialSet, en orden canónico.
var CredentialHeaders = []string{HeaderAccessToken, HeaderClient, HeaderUID}

// CredentialSet es el triple de credenciales nativo del provider.
// Los tres campos existen juntos o el set no existe.
type CredentialSet struct {
	AccessToken string `json:"access-token"`
	Client      string `json:"client"`
	UID         string `json:"uid"`
}

// Complete indica si los tres campos están presentes (no vacíos).
func (c CredentialSet) Complete() bool {
	return c.AccessToken != "" && c.Client != "" && c.UID != ""
}

// Values devuelve los valores en el mismo orden que CredentialHeaders.
func (c CredentialSet) Values() []string {
	return []string{c.AccessToken, c.Client, c.UID}
}
