package payments

// Outputs returns the requested payment outputs in declaration order, one
// (script, amount) pair per output. It performs no validation of script
// well-formedness or amount bounds and does not depend on whether the
// request authenticates.
func (p *PaymentRequest) Outputs() []Output {
	return p.Details.Outputs
}

// Expired reports whether the details record carries an expiry and the
// given Unix time is past it.
func (p *PaymentRequest) Expired(nowUnix uint64) bool {
	return p.Details.Expires != 0 && nowUnix > p.Details.Expires
}
