package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/dmitrijs2005/famtree/internal/server/config"
	"github.com/dmitrijs2005/famtree/internal/server/models"
	"github.com/dmitrijs2005/famtree/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// PortraitService hands out presigned S3 URLs for person portraits. Images
// never pass through the server.
type PortraitService struct {
	store       *docstore.Store
	repomanager repomanager.RepositoryManager
	access      *AccessService
	graph       *GraphService
	config      *config.Config
	log         logging.Logger
}

func NewPortraitService(store *docstore.Store, m repomanager.RepositoryManager, access *AccessService, graph *GraphService, cfg *config.Config, log logging.Logger) *PortraitService {
	return &PortraitService{
		store:       store,
		repomanager: m,
		access:      access,
		graph:       graph,
		config:      cfg,
		log:         log.With("module", "portraits"),
	}
}

// PortraitKey is the object key of a new portrait of personID.
func PortraitKey(tree, personID string) string {
	return fmt.Sprintf("trees/%s/people/%s/%s", tree, personID, uuid.NewString())
}

func (s *PortraitService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return newS3PresignClient(client), nil
}

func (s *PortraitService) expires() time.Duration {
	if s.config.PresignValidityDuration > 0 {
		return s.config.PresignValidityDuration
	}
	return 15 * time.Minute
}

// UploadURL points the person's portrait at a fresh object key and returns a
// presigned PUT URL for it. Only the tree owner may call it.
func (s *PortraitService) UploadURL(ctx context.Context, id *models.Identity, personID string) (string, string, error) {
	tree, err := s.graph.authorize(ctx, id)
	if err != nil {
		return "", "", err
	}
	repo := s.repomanager.People(s.store)
	if _, err := repo.Get(ctx, tree, personID); err != nil {
		return "", "", err
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", common.NewProviderError(common.CodeUnavailable, err)
	}

	bucket := s.config.S3Bucket
	key := PortraitKey(tree, personID)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.expires()))
	if err != nil {
		return "", "", common.NewProviderError(common.CodeUnavailable, err)
	}

	if err := repo.SetPortrait(ctx, tree, personID, key); err != nil {
		return "", "", err
	}
	s.log.Debug(ctx, "portrait upload issued", "tree", tree, "person_id", personID)
	return key, req.URL, nil
}

// DownloadURL returns a presigned GET URL for the portrait of a person of the
// active tree. Viewers may call it.
func (s *PortraitService) DownloadURL(ctx context.Context, id *models.Identity, personID string) (string, error) {
	tree, err := s.access.ResolveActiveTree(ctx, id)
	if err != nil {
		return "", err
	}
	p, err := s.repomanager.People(s.store).Get(ctx, tree, personID)
	if err != nil {
		return "", err
	}
	if p.PortraitKey == nil || *p.PortraitKey == "" {
		return "", fmt.Errorf("%w: person has no portrait", common.ErrorNotFound)
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", common.NewProviderError(common.CodeUnavailable, err)
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    p.PortraitKey,
	}, s3.WithPresignExpires(s.expires()))
	if err != nil {
		return "", common.NewProviderError(common.CodeUnavailable, err)
	}
	return req.URL, nil
}
