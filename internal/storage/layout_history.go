package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"organizer/internal/domain"
)

// MaxLayoutNodes bounds the history kept per page.
const MaxLayoutNodes = 40

// LayoutNode is one recorded layout of a page.
type LayoutNode struct {
	ID           string    `json:"id"`
	PageID       string    `json:"pageId"`
	ParentID     *string   `json:"parentId"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	Seq          int64     `json:"seq"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LayoutTree is the full history of a page as returned to the frontend.
type LayoutTree struct {
	Nodes     []LayoutNode `json:"nodes"`
	CurrentID string       `json:"currentId"`
	RootID    string       `json:"rootId"`
}

// LayoutHistoryStore keeps layout snapshots in SQLite.
type LayoutHistoryStore struct {
	db *DB
}

func NewLayoutHistoryStore(db *DB) *LayoutHistoryStore {
	return &LayoutHistoryStore{db: db}
}

const layoutNodeColumns = `id, page_id, parent_id, label, snapshot_json, seq, created_at`

// LoadTree returns the page history, or nil if nothing was recorded yet.
func (s *LayoutHistoryStore) LoadTree(pageID string) (*LayoutTree, error) {
	rows, err := s.db.Conn().Query(
		`SELECT `+layoutNodeColumns+` FROM layout_nodes WHERE page_id = ? ORDER BY seq ASC`, pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("load layout nodes: %w", err)
	}
	defer rows.Close()

	var nodes []LayoutNode
	var rootID string
	for rows.Next() {
		n, err := scanLayoutNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan layout node: %w", err)
		}
		if n.ParentID == nil && rootID == "" {
			rootID = n.ID
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	currentID, err := s.currentID(pageID)
	if err != nil {
		currentID = rootID
	}
	return &LayoutTree{Nodes: nodes, CurrentID: currentID, RootID: rootID}, nil
}

// Current returns the node the page is positioned at.
func (s *LayoutHistoryStore) Current(pageID string) (*LayoutNode, error) {
	id, err := s.currentID(pageID)
	if err != nil {
		return nil, err
	}
	return s.GetNode(id)
}

func (s *LayoutHistoryStore) currentID(pageID string) (string, error) {
	var id string
	err := s.db.Conn().QueryRow(`SELECT current_node_id FROM layout_state WHERE page_id = ?`, pageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("layout history of page %s: %w", pageID, domain.ErrNotFound)
	}
	return id, err
}

func (s *LayoutHistoryStore) GetNode(id string) (*LayoutNode, error) {
	n, err := scanLayoutNode(s.db.Conn().QueryRow(`SELECT `+layoutNodeColumns+` FROM layout_nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("layout node %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get layout node: %w", err)
	}
	return n, nil
}

// LatestChild returns the most recent node recorded under parentID.
func (s *LayoutHistoryStore) LatestChild(parentID string) (*LayoutNode, error) {
	n, err := scanLayoutNode(s.db.Conn().QueryRow(
		`SELECT `+layoutNodeColumns+` FROM layout_nodes WHERE parent_id = ? ORDER BY seq DESC LIMIT 1`, parentID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("child of layout node %s: %w", parentID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get layout child: %w", err)
	}
	return n, nil
}

// PushNode records a snapshot under parentID (empty for a root) and moves the
// page's position to it. Old nodes beyond MaxLayoutNodes are pruned.
func (s *LayoutHistoryStore) PushNode(pageID, nodeID, parentID, label, snapshotJSON string) (*LayoutNode, error) {
	now := time.Now()

	var pID *string
	if parentID != "" {
		pID = &parentID
	}

	var seq int64
	err := s.db.Conn().QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM layout_nodes WHERE page_id = ?`, pageID).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("next layout seq: %w", err)
	}

	_, err = s.db.Conn().Exec(
		`INSERT INTO layout_nodes (`+layoutNodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nodeID, pageID, pID, label, snapshotJSON, seq, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert layout node: %w", err)
	}

	if err := s.GoTo(pageID, nodeID); err != nil {
		return nil, fmt.Errorf("update layout state: %w", err)
	}

	if err := s.prune(pageID, MaxLayoutNodes); err != nil {
		return nil, fmt.Errorf("prune layout history: %w", err)
	}

	return &LayoutNode{
		ID:           nodeID,
		PageID:       pageID,
		ParentID:     pID,
		Label:        label,
		SnapshotJSON: snapshotJSON,
		Seq:          seq,
		CreatedAt:    now,
	}, nil
}

// GoTo updates the current position pointer.
func (s *LayoutHistoryStore) GoTo(pageID, nodeID string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO layout_state (page_id, current_node_id) VALUES (?, ?)
		 ON CONFLICT(page_id) DO UPDATE SET current_node_id = excluded.current_node_id`,
		pageID, nodeID,
	)
	return err
}

// ClearPage removes all history of a page.
func (s *LayoutHistoryStore) ClearPage(pageID string) error {
	if _, err := s.db.Conn().Exec(`DELETE FROM layout_state WHERE page_id = ?`, pageID); err != nil {
		return err
	}
	_, err := s.db.Conn().Exec(`DELETE FROM layout_nodes WHERE page_id = ?`, pageID)
	return err
}

// prune removes the oldest nodes when the page has more than maxNodes,
// re-linking their children to the removed node's parent. The current node
// is never removed.
func (s *LayoutHistoryStore) prune(pageID string, maxNodes int) error {
	var count int
	if err := s.db.Conn().QueryRow(`SELECT COUNT(*) FROM layout_nodes WHERE page_id = ?`, pageID).Scan(&count); err != nil {
		return err
	}
	if count <= maxNodes {
		return nil
	}

	currentID, _ := s.currentID(pageID)

	// collect first, the single connection cannot write with a cursor open
	rows, err := s.db.Conn().Query(
		`SELECT id, parent_id FROM layout_nodes WHERE page_id = ? AND id != ? ORDER BY seq ASC LIMIT ?`,
		pageID, currentID, count-maxNodes,
	)
	if err != nil {
		return err
	}
	type victim struct {
		id     string
		parent sql.NullString
	}
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.id, &v.parent); err != nil {
			rows.Close()
			return err
		}
		victims = append(victims, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, v := range victims {
		// the parent may itself have been pruned earlier in this loop
		var parent sql.NullString
		if err := tx.QueryRow(`SELECT parent_id FROM layout_nodes WHERE id = ?`, v.id).Scan(&parent); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE layout_nodes SET parent_id = ? WHERE parent_id = ?`, parent, v.id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM layout_nodes WHERE id = ?`, v.id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanLayoutNode(row rowScanner) (*LayoutNode, error) {
	n := &LayoutNode{}
	var parent sql.NullString
	if err := row.Scan(&n.ID, &n.PageID, &parent, &n.Label, &n.SnapshotJSON, &n.Seq, &n.CreatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		n.ParentID = &parent.String
	}
	return n, nil
}
