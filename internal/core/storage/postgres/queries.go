package postgres

// SQL templates for listing search. Listing queries are assembled per request
// from a storage.Layout and a compiled predicate; the fixed read-model queries
// are plain constants.

const (
	// queryFind selects the shared projection with ranking order.
	// Args: select list, FROM, joins, WHERE, ORDER BY, LIMIT/OFFSET clause.
	queryFind = `SELECT %s FROM %s%s WHERE %s ORDER BY %s%s`

	// queryCount is the lighter aggregate used for totals. Args: FROM, joins, WHERE.
	queryCount = `SELECT COUNT(*) FROM %s%s WHERE %s`

	// queryFacet counts distinct non-empty values of one column.
	// Args: column expr, FROM, joins, WHERE, LIMIT placeholder.
	queryFacet = `SELECT %[1]s AS value, COUNT(*) AS n FROM %[2]s%[3]s WHERE %[4]s AND %[1]s IS NOT NULL AND %[1]s <> '' GROUP BY %[1]s ORDER BY n DESC, value ASC LIMIT %[5]s`

	// queryRankOrder mirrors ranking.Ranker.Less, where a missing price counts
	// as zero and a missing modified_at as the oldest.
	// Args: id, exclusive threshold, status, price, modified_at, id.
	queryRankOrder = `CASE WHEN %[1]s < %[2]d THEN 0 ELSE 1 END, ` +
		`CASE %[3]s WHEN 'Active' THEN 0 WHEN 'Pending' THEN 1 WHEN 'ActiveUnderContract' THEN 1 ELSE 2 END, ` +
		`FLOOR(COALESCE(%[4]s, 0) / 1000) DESC, %[5]s DESC NULLS LAST, %[1]s ASC`

	queryTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = $1
		)
	`

	// queryActiveEvents returns event windows that have not ended yet.
	queryActiveEvents = `
		SELECT listing_id, id, kind, title, starts_at, ends_at
		FROM listing_events
		WHERE listing_id = ANY($1)
		  AND ends_at > $2
		ORDER BY listing_id ASC, starts_at ASC
	`

	// queryResolveAgents maps agent keys, license numbers, emails and office
	// codes onto the agent keys stored on listings.
	queryResolveAgents = `
		SELECT DISTINCT agent_key
		FROM agents
		WHERE agent_key = ANY($1)
		   OR license_number = ANY($1)
		   OR office_code = ANY($1)
		   OR LOWER(email) = ANY($2)
		ORDER BY agent_key ASC
	`
)
