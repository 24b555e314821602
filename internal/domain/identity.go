package domain

// ExternalIdentity is a verified assertion from a third-party login provider.
type ExternalIdentity struct {
	Provider   string
	ProviderID string
	Email      string
}
