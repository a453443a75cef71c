package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/sirupsen/logrus"

	"github.com/naqi324/librechat-cdk/lib/constants"
)

// SSMClientInterface is the subset of the SSM client the source needs.
type SSMClientInterface interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// SSMSource loads the /librechat parameter tree once per cold start. The
// resulting Parameters map is the lowest-precedence source in the chain.
type SSMSource struct {
	SSM    SSMClientInterface
	Logger *logrus.Logger
}

func (s *SSMSource) Load(ctx context.Context) (Parameters, error) {
	params := Parameters{}
	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(constants.SSM_PARAMETER_PATH),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	}

	for {
		output, err := s.SSM.GetParametersByPath(ctx, input)
		if err != nil {
			return nil, err
		}

		for _, param := range output.Parameters {
			params[*param.Name] = *param.Value
		}

		if output.NextToken == nil {
			break
		}
		input.NextToken = output.NextToken
	}

	s.Logger.WithFields(logrus.Fields{
		"operation":    "Load",
		"params_count": len(params),
	}).Debug("Loaded parameters from SSM Parameter Store")

	return params, nil
}
