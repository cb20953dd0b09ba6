package mid

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mozilla.org/pkcs7"
)

func TestParseResponseFault(t *testing.T) {
	c := &SOAPClient{log: zerolog.Nop()}

	body := `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://www.w3.org/2003/05/soap-envelope">
 <soapenv:Body>
  <soapenv:Fault>
   <soapenv:Code>
    <soapenv:Value>soapenv:Sender</soapenv:Value>
    <soapenv:Subcode><soapenv:Value>mss:_105</soapenv:Value></soapenv:Subcode>
   </soapenv:Code>
   <soapenv:Reason><soapenv:Text xml:lang="en">UNKNOWN_CLIENT</soapenv:Text></soapenv:Reason>
   <soapenv:Detail>The MSISDN is not a Mobile ID subscriber</soapenv:Detail>
  </soapenv:Fault>
 </soapenv:Body>
</soapenv:Envelope>`

	_, err := c.parseResponse(context.Background(), []byte(body))
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, "UNKNOWN_CLIENT", fault.Status)
	require.Equal(t, "105", fault.SubCode)
	require.Equal(t, "The MSISDN is not a Mobile ID subscriber", fault.Message)
	require.Equal(t, "UNKNOWN_CLIENT", fault.StatusCode())
}

func TestParseResponseTimeoutFault(t *testing.T) {
	c := &SOAPClient{log: zerolog.Nop()}

	body := `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://www.w3.org/2003/05/soap-envelope">
 <soapenv:Body>
  <soapenv:Fault>
   <soapenv:Code>
    <soapenv:Value>soapenv:Receiver</soapenv:Value>
    <soapenv:Subcode><soapenv:Value>mss:_208</soapenv:Value></soapenv:Subcode>
   </soapenv:Code>
   <soapenv:Reason><soapenv:Text xml:lang="en">EXPIRED_TRANSACTION</soapenv:Text></soapenv:Reason>
  </soapenv:Fault>
 </soapenv:Body>
</soapenv:Envelope>`

	_, err := c.parseResponse(context.Background(), []byte(body))
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, FaultSubcodeTimeout, fault.SubCode)
	require.Equal(t, StatusExpiredTransaction, fault.StatusCode())
}

func TestParseResponseSignature(t *testing.T) {
	cert, key := testCertificate(t, "MIDCHE5HR8NAW467")

	sd, err := pkcs7.NewSignedData([]byte("test.example.org: Login?"))
	require.NoError(t, err)
	require.NoError(t, sd.AddSigner(cert, key, pkcs7.SignerInfoConfig{}))
	der, err := sd.Finish()
	require.NoError(t, err)

	caPool := x509.NewCertPool()
	caPool.AddCert(cert)
	c := &SOAPClient{log: zerolog.Nop(), caPool: caPool}

	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://www.w3.org/2003/05/soap-envelope">
 <soapenv:Body>
  <MSS_SignatureResponse xmlns="http://uri.etsi.org/TS102204/v1.1.2#">
   <MSS_SignatureResp MajorVersion="1" MinorVersion="1">
    <MobileUser><MSISDN>+41791234567</MSISDN></MobileUser>
    <MSS_Signature><Base64Signature>%s</Base64Signature></MSS_Signature>
    <Status>
     <StatusCode Value="500"/>
     <StatusMessage>SIGNATURE</StatusMessage>
    </Status>
   </MSS_SignatureResp>
  </MSS_SignatureResponse>
 </soapenv:Body>
</soapenv:Envelope>`, base64.StdEncoding.EncodeToString(der))

	res, err := c.parseResponse(context.Background(), []byte(body))
	require.NoError(t, err)
	require.Equal(t, "MIDCHE5HR8NAW467", res.SerialNumber)
	require.Contains(t, res.Subject, "MIDCHE5HR8NAW467")
}

func TestParseResponseUnexpectedStatus(t *testing.T) {
	c := &SOAPClient{log: zerolog.Nop()}

	body := `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://www.w3.org/2003/05/soap-envelope">
 <soapenv:Body>
  <MSS_SignatureResponse xmlns="http://uri.etsi.org/TS102204/v1.1.2#">
   <MSS_SignatureResp MajorVersion="1" MinorVersion="1">
    <Status>
     <StatusCode Value="504"/>
     <StatusMessage>OUTSTANDING_TRANSACTION</StatusMessage>
    </Status>
   </MSS_SignatureResp>
  </MSS_SignatureResponse>
 </soapenv:Body>
</soapenv:Envelope>`

	_, err := c.parseResponse(context.Background(), []byte(body))
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, "OUTSTANDING_TRANSACTION", fault.Status)
}

func TestBuildSignatureRequest(t *testing.T) {
	cfg := ClientConfig{
		APID:             "mid://test.example.org",
		APPassword:       "secret",
		SignatureProfile: defaultSignatureProfile,
		TimeoutMID:       80 * time.Second,
	}
	req := SignRequest{
		MSISDN:   "+41791234567",
		Language: "de",
		Message:  `test.example.org: Login with "Mobile ID" & more?`,
	}

	envelope := buildSignatureRequest(cfg, "AP.test", req)

	require.Contains(t, envelope, `TimeOut="80"`)
	require.Contains(t, envelope, "<mss:MSISDN>+41791234567</mss:MSISDN>")
	require.Contains(t, envelope, "&amp; more?")
	require.NotContains(t, envelope, `& more`)
	require.Contains(t, envelope, ">de</fi:UserLang>")
	require.Contains(t, envelope, `AP_ID="mid://test.example.org"`)
}

func testCertificate(t *testing.T, serialNumber string) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "Test Mobile ID Signer",
			SerialNumber: serialNumber,
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func TestDigits(t *testing.T) {
	require.Equal(t, "208", digits("mss:_208"))
	require.Equal(t, "", digits("mss:Sender"))
	require.Equal(t, strings.Repeat("1", 3), digits("1a1b1"))
}
