package dbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"organizer/internal/domain"
	"organizer/internal/grid"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const mongoLayoutCollection = "organizer_layouts"

// mongoMirror stores one document per page.
type mongoMirror struct {
	client *mongo.Client
	dbName string
}

type mongoLayoutDoc struct {
	PageID   string           `bson:"_id"`
	Name     string           `bson:"name"`
	GridJSON string           `bson:"gridJson"`
	Widgets  []mongoWidgetDoc `bson:"widgets"`
	PushedAt time.Time        `bson:"pushedAt"`
}

type mongoWidgetDoc struct {
	ID       string `bson:"id"`
	Kind     string `bson:"kind"`
	X        int    `bson:"x"`
	Y        int    `bson:"y"`
	W        int    `bson:"w"`
	H        int    `bson:"h"`
	Settings string `bson:"settingsJson"` // JSON keeps number types stable across drivers
}

// buildMongoURI returns the connection URI and database name for a target.
// Host may be a full mongodb:// or mongodb+srv:// URI.
func buildMongoURI(t *domain.SyncTarget, password string) (uri, dbName string) {
	if strings.HasPrefix(t.Host, "mongodb+srv://") || strings.HasPrefix(t.Host, "mongodb://") {
		uri = t.Host
		// Atlas connection strings carry a placeholder for the password
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
	} else {
		port := t.Port
		if port == 0 {
			port = 27017
		}
		if t.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", t.Username, password, t.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", t.Host, port)
		}
		if t.ExtraJSON != "" && t.ExtraJSON != "{}" {
			var extras map[string]string
			if json.Unmarshal([]byte(t.ExtraJSON), &extras) == nil && len(extras) > 0 {
				params := make([]string, 0, len(extras))
				for k, v := range extras {
					params = append(params, k+"="+v)
				}
				uri += "/?" + strings.Join(params, "&")
			}
		}
	}

	dbName = t.Database
	if dbName == "" {
		dbName = "organizer"
	}
	return uri, dbName
}

func newMongoMirror(t *domain.SyncTarget, password string) (*mongoMirror, error) {
	uri, dbName := buildMongoURI(t, password)

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] Connecting with URI: %s (db %s)", logURI, dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoMirror{client: client, dbName: dbName}, nil
}

func (m *mongoMirror) collection() *mongo.Collection {
	return m.client.Database(m.dbName).Collection(mongoLayoutCollection)
}

func (m *mongoMirror) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoMirror) PushLayout(ctx context.Context, layout Layout) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	doc, err := toMongoDoc(layout)
	if err != nil {
		return err
	}
	_, err = m.collection().ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: layout.PageID}},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace mirrored layout: %w", err)
	}
	return nil
}

func (m *mongoMirror) PullLayout(ctx context.Context, pageID string) (*Layout, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var doc mongoLayoutDoc
	err := m.collection().FindOne(ctx, bson.D{{Key: "_id", Value: pageID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrNotMirrored)
	}
	if err != nil {
		return nil, fmt.Errorf("read mirrored layout: %w", err)
	}
	return fromMongoDoc(doc)
}

func (m *mongoMirror) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func toMongoDoc(layout Layout) (mongoLayoutDoc, error) {
	gridJSON, err := json.Marshal(layout.Grid)
	if err != nil {
		return mongoLayoutDoc{}, fmt.Errorf("encode grid config: %w", err)
	}
	doc := mongoLayoutDoc{
		PageID:   layout.PageID,
		Name:     layout.Name,
		GridJSON: string(gridJSON),
		Widgets:  make([]mongoWidgetDoc, 0, len(layout.Widgets)),
		PushedAt: layout.PushedAt,
	}
	if doc.PushedAt.IsZero() {
		doc.PushedAt = time.Now().UTC()
	}
	for _, w := range layout.Widgets {
		settings, err := json.Marshal(w.Settings)
		if err != nil {
			return mongoLayoutDoc{}, fmt.Errorf("encode settings of widget %s: %w", w.ID, err)
		}
		doc.Widgets = append(doc.Widgets, mongoWidgetDoc{
			ID:       w.ID,
			Kind:     string(w.Kind),
			X:        w.Rect.X,
			Y:        w.Rect.Y,
			W:        w.Rect.W,
			H:        w.Rect.H,
			Settings: string(settings),
		})
	}
	return doc, nil
}

func fromMongoDoc(doc mongoLayoutDoc) (*Layout, error) {
	layout := &Layout{PageID: doc.PageID, Name: doc.Name, PushedAt: doc.PushedAt}
	if err := json.Unmarshal([]byte(doc.GridJSON), &layout.Grid); err != nil {
		return nil, fmt.Errorf("decode mirrored grid config: %w", err)
	}
	for i, wd := range doc.Widgets {
		w := domain.Widget{
			ID:     wd.ID,
			PageID: doc.PageID,
			Kind:   domain.WidgetKind(wd.Kind),
			Rect:   grid.Rect{X: wd.X, Y: wd.Y, W: wd.W, H: wd.H},
			Order:  i,
		}
		if err := json.Unmarshal([]byte(wd.Settings), &w.Settings); err != nil {
			return nil, fmt.Errorf("decode settings of widget %s: %w", w.ID, err)
		}
		layout.Widgets = append(layout.Widgets, w)
	}
	return layout, nil
}
