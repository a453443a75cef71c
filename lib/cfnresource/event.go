// Package cfnresource adapts the CloudFormation custom-resource lifecycle to
// the database initializers. It follows the CDK provider-framework contract:
// the handler returns {PhysicalResourceId, Data} directly instead of posting
// to a presigned callback URL.
package cfnresource

import (
	"github.com/naqi324/librechat-cdk/lib/config"
)

// Request types CloudFormation sends. An empty RequestType means the function
// was invoked directly, outside any stack operation.
const (
	RequestCreate = "Create"
	RequestUpdate = "Update"
	RequestDelete = "Delete"
)

// Event is the inbound custom-resource event. Connection settings can arrive
// as ResourceProperties or as top-level fields; both feed the config chain.
type Event struct {
	RequestType        string            `json:"RequestType,omitempty"`
	PhysicalResourceID string            `json:"PhysicalResourceId,omitempty"`
	ResourceProperties map[string]string `json:"ResourceProperties,omitempty"`

	DBHost     string `json:"DBHost,omitempty"`
	DBPort     string `json:"DBPort,omitempty"`
	DBName     string `json:"DBName,omitempty"`
	SecretID   string `json:"SecretId,omitempty"`
	DBUser     string `json:"DBUser,omitempty"`
	DBPassword string `json:"DBPassword,omitempty"`
}

// Properties returns the ResourceProperties as a config source.
func (e Event) Properties() config.Properties {
	return config.Properties(e.ResourceProperties)
}

// Fields returns the top-level event fields as a config source.
func (e Event) Fields() config.Properties {
	fields := config.Properties{}
	for name, value := range map[string]string{
		"DBHost":     e.DBHost,
		"DBPort":     e.DBPort,
		"DBName":     e.DBName,
		"SecretId":   e.SecretID,
		"DBUser":     e.DBUser,
		"DBPassword": e.DBPassword,
	} {
		if value != "" {
			fields[name] = value
		}
	}
	return fields
}
