package kernel

import "fmt"

// Fingerprint identifica al cliente de una petición (origen de red + firma del
// user agent). Se usa para rate limiting y auditoría de intentos.
type Fingerprint struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// Key devuelve la clave estable del fingerprint para contadores compartidos.
// Los contadores son independientes entre fingerprints distintos.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s|%s", f.IP, f.UserAgent)
}

func (f Fingerprint) IsEmpty() bool {
	return f.IP == "" && f.UserAgent == ""
}
