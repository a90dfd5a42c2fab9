// Package payments provides the wire model for signed payment request
// messages: the outer request envelope, the nested payment details record,
// and the certificate chain payload carried in the PKI data field.
//
// The encoding is the standard length-delimited protobuf wire format,
// produced and consumed directly with protowire so that the canonical
// signable form (signature field present but empty) can be emitted
// byte-exactly.
package payments

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Common errors
var (
	ErrMalformedEnvelope         = errors.New("malformed payment request envelope")
	ErrMalformedDetails          = errors.New("malformed payment details")
	ErrMalformedCertificateChain = errors.New("malformed certificate chain")
)

// UnsupportedVersionError is returned when a request declares a payment
// details version newer than this implementation understands.
type UnsupportedVersionError struct {
	Version uint32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported payment details version %d (max %d)", e.Version, MaxDetailsVersion)
}

// MaxDetailsVersion is the newest payment details version this package can
// decode. Requests declaring a higher version are rejected unparsed.
const MaxDetailsVersion = 1

// Request field numbers.
const (
	requestFieldVersion   = 1
	requestFieldPKIType   = 2
	requestFieldPKIData   = 3
	requestFieldDetails   = 4
	requestFieldSignature = 5
)

// Details field numbers.
const (
	detailsFieldNetwork      = 1
	detailsFieldOutputs      = 2
	detailsFieldTime         = 3
	detailsFieldExpires      = 4
	detailsFieldMemo         = 5
	detailsFieldPaymentURL   = 6
	detailsFieldMerchantData = 7
)

// Output field numbers.
const (
	outputFieldAmount = 1
	outputFieldScript = 2
)

// Request is the outer payment request envelope. The serialized details are
// kept as opaque bytes; the signature covers the envelope with the
// signature field itself cleared (see SignableForm).
//
// A nil Signature means the field was absent from the wire; an empty
// non-nil Signature is emitted as a present, zero-length field.
type Request struct {
	DetailsVersion    uint32
	PKIType           string
	PKIData           []byte
	SerializedDetails []byte
	Signature         []byte
}

// Output is a single requested payment output: an opaque spend script and
// an amount in the smallest currency unit. Neither is validated here.
type Output struct {
	Amount uint64
	Script []byte
}

// Details is the decoded payment details record. All fields beyond Outputs
// are pass-through metadata; this package does not interpret them.
type Details struct {
	Network      string
	Outputs      []Output
	Time         uint64
	Expires      uint64
	Memo         string
	PaymentURL   string
	MerchantData []byte
}

// PaymentRequest bundles a decoded envelope with its decoded details.
// Instances are created by Parse and not mutated afterwards.
type PaymentRequest struct {
	Request *Request
	Details *Details
}

// Parse decodes a payment request from its wire encoding.
//
// It fails with ErrMalformedEnvelope if the outer message does not decode,
// with UnsupportedVersionError if the declared details version exceeds
// MaxDetailsVersion (the nested details are not decoded on this path), and
// with ErrMalformedDetails if the nested details record does not decode.
// No partially decoded request is ever returned.
func Parse(data []byte) (*PaymentRequest, error) {
	req, err := parseRequest(data)
	if err != nil {
		return nil, err
	}
	if req.DetailsVersion > MaxDetailsVersion {
		return nil, &UnsupportedVersionError{Version: req.DetailsVersion}
	}
	details, err := parseDetails(req.SerializedDetails)
	if err != nil {
		return nil, err
	}
	return &PaymentRequest{Request: req, Details: details}, nil
}

// parseRequest decodes the outer envelope.
func parseRequest(data []byte) (*Request, error) {
	req := &Request{
		// Wire defaults for absent fields.
		DetailsVersion: 1,
		PKIType:        "none",
	}
	sawDetails := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad field tag", ErrMalformedEnvelope)
		}
		data = data[n:]

		switch {
		case num == requestFieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad details version", ErrMalformedEnvelope)
			}
			req.DetailsVersion = uint32(v)
			data = data[n:]
		case num == requestFieldPKIType && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad pki_type", ErrMalformedEnvelope)
			}
			req.PKIType = string(v)
			data = data[n:]
		case num == requestFieldPKIData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad pki_data", ErrMalformedEnvelope)
			}
			req.PKIData = cloneBytes(v)
			data = data[n:]
		case num == requestFieldDetails && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad serialized details", ErrMalformedEnvelope)
			}
			req.SerializedDetails = cloneBytes(v)
			sawDetails = true
			data = data[n:]
		case num == requestFieldSignature && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad signature", ErrMalformedEnvelope)
			}
			req.Signature = cloneBytes(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad field %d", ErrMalformedEnvelope, num)
			}
			data = data[n:]
		}
	}

	// serialized_payment_details is a required field.
	if !sawDetails {
		return nil, fmt.Errorf("%w: missing serialized details", ErrMalformedEnvelope)
	}
	return req, nil
}

// parseDetails decodes the nested payment details record.
func parseDetails(data []byte) (*Details, error) {
	d := &Details{
		Network: "main",
	}
	sawTime := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad field tag", ErrMalformedDetails)
		}
		data = data[n:]

		switch {
		case num == detailsFieldNetwork && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad network", ErrMalformedDetails)
			}
			d.Network = string(v)
			data = data[n:]
		case num == detailsFieldOutputs && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad output", ErrMalformedDetails)
			}
			out, err := parseOutput(v)
			if err != nil {
				return nil, err
			}
			d.Outputs = append(d.Outputs, out)
			data = data[n:]
		case num == detailsFieldTime && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad time", ErrMalformedDetails)
			}
			d.Time = v
			sawTime = true
			data = data[n:]
		case num == detailsFieldExpires && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad expires", ErrMalformedDetails)
			}
			d.Expires = v
			data = data[n:]
		case num == detailsFieldMemo && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad memo", ErrMalformedDetails)
			}
			d.Memo = string(v)
			data = data[n:]
		case num == detailsFieldPaymentURL && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad payment URL", ErrMalformedDetails)
			}
			d.PaymentURL = string(v)
			data = data[n:]
		case num == detailsFieldMerchantData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad merchant data", ErrMalformedDetails)
			}
			d.MerchantData = cloneBytes(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad field %d", ErrMalformedDetails, num)
			}
			data = data[n:]
		}
	}

	if !sawTime {
		return nil, fmt.Errorf("%w: missing creation time", ErrMalformedDetails)
	}
	return d, nil
}

// parseOutput decodes one embedded Output message.
func parseOutput(data []byte) (Output, error) {
	var out Output
	sawScript := false

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Output{}, fmt.Errorf("%w: bad output field tag", ErrMalformedDetails)
		}
		data = data[n:]

		switch {
		case num == outputFieldAmount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Output{}, fmt.Errorf("%w: bad output amount", ErrMalformedDetails)
			}
			out.Amount = v
			data = data[n:]
		case num == outputFieldScript && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Output{}, fmt.Errorf("%w: bad output script", ErrMalformedDetails)
			}
			out.Script = cloneBytes(v)
			sawScript = true
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Output{}, fmt.Errorf("%w: bad output field %d", ErrMalformedDetails, num)
			}
			data = data[n:]
		}
	}

	if !sawScript {
		return Output{}, fmt.Errorf("%w: output missing script", ErrMalformedDetails)
	}
	return out, nil
}

// Marshal encodes the envelope in ascending field order. Fields carrying
// their wire default are still emitted for the version and pki_type so the
// output is stable; pki_data is emitted only when non-empty and the
// signature only when present.
func (r *Request) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, requestFieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.DetailsVersion))
	b = protowire.AppendTag(b, requestFieldPKIType, protowire.BytesType)
	b = protowire.AppendString(b, r.PKIType)
	if len(r.PKIData) > 0 {
		b = protowire.AppendTag(b, requestFieldPKIData, protowire.BytesType)
		b = protowire.AppendBytes(b, r.PKIData)
	}
	b = protowire.AppendTag(b, requestFieldDetails, protowire.BytesType)
	b = protowire.AppendBytes(b, r.SerializedDetails)
	if r.Signature != nil {
		b = protowire.AppendTag(b, requestFieldSignature, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Signature)
	}
	return b
}

// SignableForm returns the canonical byte form the signature covers: the
// envelope re-serialized with the signature field present but empty. The
// cleared copy is transient; the receiver is not modified.
func (r *Request) SignableForm() []byte {
	cleared := *r
	cleared.Signature = []byte{}
	return cleared.Marshal()
}

// Marshal encodes the details record in ascending field order. Optional
// metadata fields are emitted only when set; the network field always, so
// re-parsing restores the same value.
func (d *Details) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, detailsFieldNetwork, protowire.BytesType)
	b = protowire.AppendString(b, d.Network)
	for _, out := range d.Outputs {
		b = protowire.AppendTag(b, detailsFieldOutputs, protowire.BytesType)
		b = protowire.AppendBytes(b, out.marshal())
	}
	b = protowire.AppendTag(b, detailsFieldTime, protowire.VarintType)
	b = protowire.AppendVarint(b, d.Time)
	if d.Expires != 0 {
		b = protowire.AppendTag(b, detailsFieldExpires, protowire.VarintType)
		b = protowire.AppendVarint(b, d.Expires)
	}
	if d.Memo != "" {
		b = protowire.AppendTag(b, detailsFieldMemo, protowire.BytesType)
		b = protowire.AppendString(b, d.Memo)
	}
	if d.PaymentURL != "" {
		b = protowire.AppendTag(b, detailsFieldPaymentURL, protowire.BytesType)
		b = protowire.AppendString(b, d.PaymentURL)
	}
	if len(d.MerchantData) > 0 {
		b = protowire.AppendTag(b, detailsFieldMerchantData, protowire.BytesType)
		b = protowire.AppendBytes(b, d.MerchantData)
	}
	return b
}

func (o Output) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, outputFieldAmount, protowire.VarintType)
	b = protowire.AppendVarint(b, o.Amount)
	b = protowire.AppendTag(b, outputFieldScript, protowire.BytesType)
	b = protowire.AppendBytes(b, o.Script)
	return b
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
