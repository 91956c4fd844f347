package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/pbx/internal/common"
	"github.com/dmitrijs2005/pbx/internal/shared"
)

// endpointTemplate receives the environment segment of the project id.
const endpointTemplate = "https://integration.%s.paperbox.ai"

// ServiceAccount is the subset of a service-account key file used to mint
// upload credentials.
type ServiceAccount struct {
	ClientEmail  string `json:"client_email"`
	ProjectID    string `json:"project_id"`
	PrivateKey   Secret `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
}

// Secret is key material kept as bytes so it can be wiped after use.
type Secret []byte

func (s *Secret) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Secret(v)
	return nil
}

// Wipe zeroes the private key. The account cannot mint afterwards.
func (sa *ServiceAccount) Wipe() {
	shared.WipeByteArray(sa.PrivateKey)
}

// LoadServiceAccount reads and validates a key file.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read key file: %w", common.ErrCredential, err)
	}
	defer shared.WipeByteArray(data)

	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("%w: parse key file %s: %w", common.ErrCredential, path, err)
	}

	switch {
	case sa.ClientEmail == "":
		return nil, fmt.Errorf("%w: key file %s has no client_email", common.ErrCredential, path)
	case sa.ProjectID == "":
		return nil, fmt.Errorf("%w: key file %s has no project_id", common.ErrCredential, path)
	case len(sa.PrivateKey) == 0:
		return nil, fmt.Errorf("%w: key file %s has no private_key", common.ErrCredential, path)
	}

	return &sa, nil
}

// EndpointForProject derives the integration API base URL from the trailing
// hyphen-delimited segment of a project id, e.g. "acme-prd" -> prd.
func EndpointForProject(projectID string) (string, error) {
	env := projectID[strings.LastIndex(projectID, "-")+1:]
	if env == "" {
		return "", fmt.Errorf("%w: project id %q has no environment segment", common.ErrCredential, projectID)
	}
	return fmt.Sprintf(endpointTemplate, env), nil
}
