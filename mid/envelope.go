package mid

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// buildSignatureRequest renders the synchronous MSS_Signature envelope.
// The transaction timeout travels inside the request; the round-trip
// timeout is enforced by the HTTP client.
func buildSignatureRequest(cfg ClientConfig, transID string, req SignRequest) string {
	return fmt.Sprintf(signatureRequestTemplate,
		int(cfg.TimeoutMID.Seconds()),
		xmlEscape(cfg.APID),
		xmlEscape(cfg.APPassword),
		xmlEscape(transID),
		time.Now().UTC().Format(time.RFC3339),
		xmlEscape(req.MSISDN),
		xmlEscape(req.Message),
		xmlEscape(cfg.SignatureProfile),
		xmlEscape(req.Language),
	)
}

const signatureRequestTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://www.w3.org/2003/05/soap-envelope">
 <soapenv:Body>
  <MSS_Signature xmlns="http://uri.etsi.org/TS102204/v1.1.2#">
   <mss:MSS_SignatureReq xmlns:mss="http://uri.etsi.org/TS102204/v1.1.2#" MajorVersion="1" MinorVersion="1" MessagingMode="synch" TimeOut="%d">
    <mss:AP_Info AP_ID="%s" AP_PWD="%s" AP_TransID="%s" Instant="%s"/>
    <mss:MSSP_Info>
     <mss:MSSP_ID><mss:URI>http://mid.swisscom.ch/</mss:URI></mss:MSSP_ID>
    </mss:MSSP_Info>
    <mss:MobileUser>
     <mss:MSISDN>%s</mss:MSISDN>
    </mss:MobileUser>
    <mss:DataToBeSigned MimeType="text/plain" Encoding="UTF-8">%s</mss:DataToBeSigned>
    <mss:SignatureProfile>
     <mss:mssURI>%s</mss:mssURI>
    </mss:SignatureProfile>
    <mss:AdditionalServices>
     <mss:Service>
      <mss:Description>
       <mss:mssURI>http://mss.ficom.fi/TS102204/v1.0.0#userLang</mss:mssURI>
      </mss:Description>
      <fi:UserLang xmlns:fi="http://mss.ficom.fi/TS102204/v1.0.0#">%s</fi:UserLang>
     </mss:Service>
    </mss:AdditionalServices>
   </mss:MSS_SignatureReq>
  </MSS_Signature>
 </soapenv:Body>
</soapenv:Envelope>`

func xmlEscape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

type signatureEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault    *soapFault         `xml:"Fault"`
		Response *signatureResponse `xml:"MSS_SignatureResponse"`
	} `xml:"Body"`
}

type signatureResponse struct {
	Resp struct {
		MSISDN    string `xml:"MobileUser>MSISDN"`
		Signature struct {
			Base64 string `xml:"Base64Signature"`
		} `xml:"MSS_Signature"`
		Status struct {
			Code struct {
				Value string `xml:"Value,attr"`
			} `xml:"StatusCode"`
			Message string `xml:"StatusMessage"`
		} `xml:"Status"`
	} `xml:"MSS_SignatureResp"`
}

type soapFault struct {
	Code struct {
		Value   string `xml:"Value"`
		Subcode struct {
			Value string `xml:"Value"`
		} `xml:"Subcode"`
	} `xml:"Code"`
	Reason struct {
		Text string `xml:"Text"`
	} `xml:"Reason"`
	Detail string `xml:"Detail"`
}

// faultFromSOAP lifts a SOAP fault into a Fault. The subcode comes
// prefixed with a namespace tag (e.g. "mss:_208"), only its digits are
// kept.
func faultFromSOAP(f *soapFault) *Fault {
	message := strings.TrimSpace(f.Detail)
	if message == "" {
		message = strings.TrimSpace(f.Reason.Text)
	}
	return &Fault{
		Status:  strings.TrimSpace(f.Reason.Text),
		SubCode: digits(f.Code.Subcode.Value),
		Message: message,
	}
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
