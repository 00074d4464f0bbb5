package validators

// Example record types shipped with the daemon.
const (
	TypeDonation = "donation"
	TypeMission  = "mission"
)

// ExampleSchemas returns the donation and mission schemas.
func ExampleSchemas() []Schema {
	return []Schema{
		{
			Type: TypeDonation,
			Fields: map[string]FieldSpec{
				"amount":     {Kind: KindNumber, Required: true},
				"currency":   {Kind: KindString, Required: true},
				"donor":      {Kind: KindString},
				"mission_id": {Kind: KindString},
				"note":       {Kind: KindString, Mergeable: true},
				"donated_at": {Kind: KindTimestamp, Required: true},
				"anonymous":  {Kind: KindBool, Mergeable: true},
			},
		},
		{
			Type: TypeMission,
			Fields: map[string]FieldSpec{
				"title":       {Kind: KindString, Required: true},
				"description": {Kind: KindString, Mergeable: true},
				"status":      {Kind: KindString},
				"priority":    {Kind: KindInteger, Mergeable: true},
				"tags":        {Kind: KindArray, Mergeable: true},
				"location":    {Kind: KindObject},
				"starts_at":   {Kind: KindTimestamp},
			},
		},
	}
}
