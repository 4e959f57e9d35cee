package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/visor/archive"
	"github.com/hupe1980/visor/blobstore"
	"github.com/hupe1980/visor/blobstore/minio"
	"github.com/hupe1980/visor/blobstore/s3"
	"github.com/hupe1980/visor/codec"
	"github.com/hupe1980/visor/config"
	"github.com/hupe1980/visor/resource"
)

// remoteCacheBytes is the read cache kept in front of remote archives.
const remoteCacheBytes = 64 << 20

// openArchive builds the archive configured by c. It returns nil for
// archive kind "none".
func openArchive(ctx context.Context, c config.Archive, rc *resource.Controller, logger *slog.Logger) (*archive.Archive, error) {
	var store blobstore.Store
	switch c.Kind {
	case "", config.ArchiveNone:
		return nil, nil
	case config.ArchiveLocal:
		local, err := blobstore.NewLocalStore(c.Dir)
		if err != nil {
			return nil, err
		}
		store = local
	case config.ArchiveMinio:
		client, err := miniogo.New(c.Endpoint, &miniogo.Options{
			Creds:  miniocreds.NewStaticV4(c.AccessKey, c.SecretKey, ""),
			Secure: c.UseSSL,
			Region: c.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		store = blobstore.NewCachingStore(minio.NewStore(client, c.Bucket, ""), remoteCacheBytes, rc)
	case config.ArchiveS3:
		s, err := openS3(ctx, c)
		if err != nil {
			return nil, err
		}
		store = blobstore.NewCachingStore(s, remoteCacheBytes, rc)
	default:
		return nil, fmt.Errorf("unknown archive kind %q", c.Kind)
	}

	comp, err := archive.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	opts := []archive.Option{
		archive.WithCompression(comp),
		archive.WithPrefix(c.Prefix),
		archive.WithLogger(logger),
	}
	if c.Codec != "" {
		cd, ok := codec.ByName(c.Codec)
		if !ok {
			return nil, fmt.Errorf("unknown codec %q", c.Codec)
		}
		opts = append(opts, archive.WithCodec(cd))
	}

	logger.Info("archive enabled", "kind", c.Kind, "compression", comp.String())
	return archive.New(store, opts...), nil
}

func openS3(ctx context.Context, c config.Archive) (blobstore.Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(c.Region))
	}
	if c.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	objects := s3.NewStore(client, c.Bucket, "")
	if c.DDBTable == "" {
		return objects, nil
	}

	baseURI := "s3://" + c.Bucket
	if p := strings.Trim(c.Prefix, "/"); p != "" {
		baseURI += "/" + p
	}
	return s3.NewDDBCommitStore(objects, dynamodb.NewFromConfig(awsCfg), c.DDBTable, baseURI), nil
}
