package verifier

// MerchantName extracts the subject common name from the validated signing
// certificate. The CN is the only identity field surfaced to callers.
func MerchantName(chain *ValidatedChain) (string, error) {
	cn := chain.Leaf.Subject.CommonName
	if cn == "" {
		return "", ErrMissingCommonName
	}
	return cn, nil
}
