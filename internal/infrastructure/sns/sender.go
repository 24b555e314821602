package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/go-notes-api/internal/config"
	"github.com/go-notes-api/internal/infrastructure/awsinfra"
)

// publisher is the subset of *sns.Client used here.
type publisher interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// CodeMessage is the JSON body published for each code. A mail worker
// subscribed to the topic renders and sends it.
type CodeMessage struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Code  string `json:"code"`
}

// CodePublisher hands verification codes to an SNS topic.
type CodePublisher struct {
	client   publisher
	topicARN string
}

func NewCodePublisher(ctx context.Context, cfg *config.Config) (*CodePublisher, error) {
	awsCfg, err := awsinfra.LoadConfig(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &CodePublisher{client: sns.NewFromConfig(awsCfg, clientOpts...), topicARN: cfg.SNSTopicARN}, nil
}

func (p *CodePublisher) SendCode(ctx context.Context, to, code string) error {
	body, err := json.Marshal(CodeMessage{Type: "otp", Email: to, Code: code})
	if err != nil {
		return err
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type": {DataType: aws.String("String"), StringValue: aws.String("otp")},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
