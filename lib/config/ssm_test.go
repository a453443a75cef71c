package config

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func String(v string) *string {
	return &v
}

type MockSSMClient struct {
	TestSuccess bool
	pages       int
}

func (m *MockSSMClient) GetParametersByPath(ctx context.Context, input *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if !m.TestSuccess {
		return nil, errors.New("error in GetParametersByPath")
	}

	m.pages++
	if m.pages == 1 {
		return &ssm.GetParametersByPathOutput{
			Parameters: []types.Parameter{
				{Name: String("/librechat/DB_HOST"), Value: String("docdb.cluster.local")},
			},
			NextToken: String("page-2"),
		}, nil
	}
	return &ssm.GetParametersByPathOutput{
		Parameters: []types.Parameter{
			{Name: String("/librechat/DB_NAME"), Value: String("librechat")},
		},
	}, nil
}

func Test_Load_Success(t *testing.T) {
	source := &SSMSource{SSM: &MockSSMClient{TestSuccess: true}, Logger: logrus.New()}

	params, err := source.Load(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "docdb.cluster.local", params["/librechat/DB_HOST"])
	assert.Equal(t, "librechat", params["/librechat/DB_NAME"])

	host, ok := params.Lookup(DBHost)
	assert.True(t, ok)
	assert.Equal(t, "docdb.cluster.local", host)
}

func Test_Load_Failure(t *testing.T) {
	source := &SSMSource{SSM: &MockSSMClient{TestSuccess: false}, Logger: logrus.New()}

	_, err := source.Load(context.Background())

	assert.EqualError(t, err, "error in GetParametersByPath")
}
