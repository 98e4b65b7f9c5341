package mysql

// kv_blobs holds whole-state JSON documents (decision map, analysis cache).
const getBlobSQL = `SELECT v FROM kv_blobs WHERE k = ?`

const upsertBlobSQL = `
INSERT INTO kv_blobs (k, v, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP(6))
ON DUPLICATE KEY UPDATE
  v = VALUES(v),
  updated_at = CURRENT_TIMESTAMP(6)
`

const deleteBlobSQL = `DELETE FROM kv_blobs WHERE k = ?`

// moderation_log is append-only; event_id keeps retries idempotent.
const insertDecisionSQL = `
INSERT IGNORE INTO moderation_log
  (event_id, review_id, prev_state, new_state, decided_at)
VALUES (?, ?, ?, ?, ?)
`

const listDecisionsSQL = `
SELECT event_id, review_id, prev_state, new_state, decided_at
FROM moderation_log
WHERE review_id = ?
ORDER BY decided_at, id
`
