package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/tsinghua-fib-lab/takeover-sim/perf"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSink 把每次试次归档到MongoDB集合
type MongoSink struct {
	client *mongo.Client
	col    *mongo.Collection
}

// OpenMongo 连接MongoDB
func OpenMongo(ctx context.Context, c config.MongoOutput) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &MongoSink{client: client, col: client.Database(c.DB).Collection(c.Col)}, nil
}

// Document 试次的BSON文档
func Document(r perf.Record) bson.M {
	st := r.Settings
	samples := make(bson.A, len(r.Samples))
	for i, v := range r.Samples {
		samples[i] = bson.M{"t": v.T, "offset": v.Offset, "vergence": v.Vergence}
	}
	collisions := make(bson.A, len(r.Collisions))
	for i, e := range r.Collisions {
		collisions[i] = bson.M{"t": e.Timestamp, "actor_id": int64(e.OtherActor.ID), "actor_type": e.OtherActor.TypeID}
	}
	return bson.M{
		"session":        r.Session,
		"participant_id": st.ParticipantID,
		"trial_no":       st.TrialNo,
		"rsvp":           st.RSVP,
		"tts":            st.TTS,
		"wpm":            strings.TrimSpace(st.WPM),
		"text_file":      st.TextFile,
		"scenario":       r.Scenario,
		"lane_offsets":   samples,
		"collisions":     collisions,
		"summary": bson.M{
			"samples":     r.Summary.Samples,
			"mean_offset": r.Summary.MeanOffset,
			"sdlp":        r.Summary.SDLP,
			"max_offset":  r.Summary.MaxOffset,
			"collisions":  r.Summary.Collisions,
		},
		"created_at": r.CreatedAt,
	}
}

func (s *MongoSink) Write(ctx context.Context, r perf.Record) error {
	if _, err := s.col.InsertOne(ctx, Document(r)); err != nil {
		return fmt.Errorf("insert trial into mongo: %w", err)
	}
	log.Infof("archived %s trial %s to mongo", r.Scenario, r.Settings.TrialNo)
	return nil
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
