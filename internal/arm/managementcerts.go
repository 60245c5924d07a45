package arm

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stormspotter-go/stormspotter/internal/recordstore"
	"github.com/stormspotter-go/stormspotter/internal/utils"
)

// subscriptionCertificates is the classic Management API's certificate
// listing response.
type subscriptionCertificates struct {
	XMLName      xml.Name `xml:"SubscriptionCertificates"`
	Certificates []struct {
		Thumbprint string `xml:"SubscriptionCertificateThumbprint"`
		Created    string `xml:"Created"`
	} `xml:"SubscriptionCertificate"`
}

// ManagementCert is one persisted classic management certificate record.
type ManagementCert struct {
	SubscriptionID string `msgpack:"subscriptionId"`
	Thumbprint     string `msgpack:"thumbprint"`
	Created        string `msgpack:"created"`
}

// QueryManagementCerts fetches classic management certificates for one
// subscription, if the cloud profile defines a management endpoint.
// Forbidden responses are swallowed (classic management APIs are
// frequently disabled).
func QueryManagementCerts(ctx context.Context, httpClient *http.Client, managementBase, subscriptionID string, token string, store recordstore.Appender) error {
	logger := utils.LoggerFromContext(ctx).WithValues(utils.LogValues{}.AddSubscriptionID(subscriptionID)...)
	logger.Info("enumerating management certs")

	url := fmt.Sprintf("%s/%s/certificates", strings.TrimRight(managementBase, "/"), subscriptionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building management certs request: %w", err)
	}
	req.Header.Set("x-ms-version", "2012-03-01")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting management certs for %s: %w", subscriptionID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading management certs response for %s: %w", subscriptionID, err)
	}

	if strings.Contains(string(body), "ForbiddenError") {
		logger.Info("forbidden: cannot enumerate management certs")
		return nil
	}

	var parsed subscriptionCertificates
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("parsing management certs xml for %s: %w", subscriptionID, err)
	}

	for _, cert := range parsed.Certificates {
		record := ManagementCert{
			SubscriptionID: subscriptionID,
			Thumbprint:     cert.Thumbprint,
			Created:        cert.Created,
		}
		if err := store.Append("management_certs", record); err != nil {
			logger.Error(err, "failed to persist management cert")
		}
	}

	logger.Info("finished management certs")
	return nil
}
