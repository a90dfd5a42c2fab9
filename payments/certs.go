package payments

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Certificate chain payload field numbers.
const certChainFieldCertificate = 1

// DecodeCertificates decodes the PKI data payload into an ordered list of
// DER-encoded certificates. Index 0 is always the leaf (signing)
// certificate, followed by intermediates in leaf-to-root order.
//
// The X.509 structure of each entry is deliberately not parsed here, so a
// malformed payload is distinguishable from a malformed certificate.
func DecodeCertificates(pkiData []byte) ([][]byte, error) {
	var certs [][]byte
	data := pkiData

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad field tag", ErrMalformedCertificateChain)
		}
		data = data[n:]

		switch {
		case num == certChainFieldCertificate && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad certificate entry", ErrMalformedCertificateChain)
			}
			certs = append(certs, cloneBytes(v))
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: bad field %d", ErrMalformedCertificateChain, num)
			}
			data = data[n:]
		}
	}
	return certs, nil
}

// EncodeCertificates encodes DER certificates as a chain payload suitable
// for the pki_data field. The input order is preserved.
func EncodeCertificates(certs [][]byte) []byte {
	var b []byte
	for _, der := range certs {
		b = protowire.AppendTag(b, certChainFieldCertificate, protowire.BytesType)
		b = protowire.AppendBytes(b, der)
	}
	return b
}
