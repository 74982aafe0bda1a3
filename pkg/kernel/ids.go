package kernel

// ProfileID identifica un perfil interno
type ProfileID string

func NewProfileID(id string) ProfileID { return ProfileID(id) }
func (p ProfileID) String() string     { return string(p) }
func (p ProfileID) IsEmpty() bool      { return string(p) == "" }

// ExternalID identifica la cuenta en el proveedor de identidad externo
type ExternalID string

func NewExternalID(id string) ExternalID { return ExternalID(id) }
func (e ExternalID) String() string      { return string(e) }
func (e ExternalID) IsEmpty() bool       { return string(e) == "" }
