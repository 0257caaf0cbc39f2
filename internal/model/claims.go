package model

// FederatedClaims is the verified claim set returned by an OAuth provider
// after its own code exchange. It carries facts only.
type FederatedClaims struct {
	Provider      string
	SubjectID     string
	Email         string
	Name          string
	PictureURL    string
	EmailVerified bool
}

// ResolutionCase tags which branch of federated resolution fired.
type ResolutionCase string

const (
	// ResolutionLinked: the provider subject was already known.
	ResolutionLinked ResolutionCase = "linked"
	// ResolutionMerged: an existing identity with the same email gained the subject.
	ResolutionMerged ResolutionCase = "merged"
	// ResolutionCreated: a new federated identity was created.
	ResolutionCreated ResolutionCase = "created"
)

type FederatedResolution struct {
	User *User
	Case ResolutionCase
}
