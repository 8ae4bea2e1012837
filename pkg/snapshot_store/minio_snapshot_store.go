package snapshot_store

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"streamsql/pkg/common_errors"
	"streamsql/pkg/env_config"
	"streamsql/pkg/hashfuncs"
)

const SNAPSHOT_BUCKET_NAME = "streamsql"

// MinioSnapshotStore writes one object per snapshot. All snapshots of a
// name go to the same instance so that they can be listed.
type MinioSnapshotStore struct {
	minioClients []*minio.Client
}

var _ = SnapshotStore(&MinioSnapshotStore{})

func NewMinioSnapshotStore(cfg *env_config.Config) (*MinioSnapshotStore, error) {
	addrArr := strings.Split(cfg.MinioAddr, ",")
	log.Info().Strs("addr", addrArr).Msg("minio snapshot store")
	mcs := make([]*minio.Client, len(addrArr))
	for i := 0; i < len(addrArr); i++ {
		mc, err := minio.New(strings.TrimSpace(addrArr[i]), &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioSecure,
		})
		if err != nil {
			return nil, xerrors.Errorf("minio client %s: %w", addrArr[i], err)
		}
		mcs[i] = mc
	}
	return &MinioSnapshotStore{minioClients: mcs}, nil
}

// CreateSnapshotBucket makes sure the bucket exists on every instance.
func (mc *MinioSnapshotStore) CreateSnapshotBucket(ctx context.Context) error {
	bg, ctx := errgroup.WithContext(ctx)
	for _, client := range mc.minioClients {
		client := client
		bg.Go(func() error {
			exists, err := client.BucketExists(ctx, SNAPSHOT_BUCKET_NAME)
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
			return client.MakeBucket(ctx, SNAPSHOT_BUCKET_NAME, minio.MakeBucketOptions{})
		})
	}
	return bg.Wait()
}

func (mc *MinioSnapshotStore) clientFor(name string) *minio.Client {
	return mc.minioClients[hashfuncs.NameHash(name)%uint64(len(mc.minioClients))]
}

func (mc *MinioSnapshotStore) StoreSnapshot(ctx context.Context, name string, epoch uint64, snapshot []byte) error {
	key := snapshotKey(name, epoch)
	log.Debug().Str("key", key).Int("bytes", len(snapshot)).Msg("store snapshot in minio")
	_, err := mc.clientFor(name).PutObject(ctx, SNAPSHOT_BUCKET_NAME, key, bytes.NewReader(snapshot),
		int64(len(snapshot)), minio.PutObjectOptions{})
	return err
}

func (mc *MinioSnapshotStore) GetSnapshot(ctx context.Context, name string, epoch uint64) ([]byte, error) {
	key := snapshotKey(name, epoch)
	object, err := mc.clientFor(name).GetObject(ctx, SNAPSHOT_BUCKET_NAME, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()
	b, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, xerrors.Errorf("snapshot %s: %w", key, common_errors.ErrSnapshotNotFound)
		}
		return nil, err
	}
	return b, nil
}

func (mc *MinioSnapshotStore) ListEpochs(ctx context.Context, name string) ([]uint64, error) {
	var epochs []uint64
	for obj := range mc.clientFor(name).ListObjects(ctx, SNAPSHOT_BUCKET_NAME, minio.ListObjectsOptions{
		Prefix: name + "_",
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if epoch, ok := parseSnapshotKey(name, obj.Key); ok {
			epochs = append(epochs, epoch)
		}
	}
	slices.Sort(epochs)
	return epochs, nil
}
