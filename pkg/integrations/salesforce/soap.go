package salesforce

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const loginEnvelopeHeader = `<?xml version="1.0" encoding="utf-8"?>
<env:Envelope xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:env="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="urn:partner.soap.sforce.com">
<env:Body><urn:login>`

const loginEnvelopeFooter = `</urn:login></env:Body></env:Envelope>`

// buildLoginEnvelope renders the partner API login request.
func buildLoginEnvelope(username, password string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(loginEnvelopeHeader)
	buf.WriteString("<urn:username>")
	if err := xml.EscapeText(&buf, []byte(username)); err != nil {
		return nil, fmt.Errorf("escape username: %w", err)
	}
	buf.WriteString("</urn:username><urn:password>")
	if err := xml.EscapeText(&buf, []byte(password)); err != nil {
		return nil, fmt.Errorf("escape password: %w", err)
	}
	buf.WriteString("</urn:password>")
	buf.WriteString(loginEnvelopeFooter)
	return buf.Bytes(), nil
}

// loginEnvelope matches both a loginResponse and a SOAP fault. Element names
// are matched without namespaces.
type loginEnvelope struct {
	Body struct {
		Response *struct {
			Result struct {
				ServerURL string `xml:"serverUrl"`
				SessionID string `xml:"sessionId"`
				UserID    string `xml:"userId"`
			} `xml:"result"`
		} `xml:"loginResponse"`
		Fault *soapFault `xml:"Fault"`
	} `xml:"Body"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (f *soapFault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

func parseLoginResponse(body []byte) (*loginEnvelope, error) {
	var env loginEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	return &env, nil
}
