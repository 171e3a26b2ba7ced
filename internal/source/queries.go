package source

// Queries issued by the profile pipeline. Paginated queries take $limit and
// $offset and order by a stable key so pages neither skip nor repeat rows.
var (
	QueryUser = Query{
		Name: "User",
		Root: "user",
		Text: `query User {
  user { id login }
}`,
	}

	QueryAudit = Query{
		Name: "AuditTransactions",
		Root: "transaction",
		Text: `query AuditTransactions($limit: Int!, $offset: Int!) {
  transaction(
    where: { type: { _in: ["up", "down"] } }
    order_by: [{ createdAt: asc }, { id: asc }]
    limit: $limit
    offset: $offset
  ) { id type amount createdAt path }
}`,
	}

	QueryProgress = Query{
		Name: "ProjectProgress",
		Root: "progress",
		Text: `query ProjectProgress($limit: Int!, $offset: Int!) {
  progress(
    where: { object: { type: { _eq: "project" } } }
    order_by: [{ updatedAt: desc }, { id: asc }]
    limit: $limit
    offset: $offset
  ) { id grade path updatedAt object { id name type } }
}`,
	}

	QueryProjectXP = Query{
		Name: "ProjectXP",
		Root: "transaction",
		Text: `query ProjectXP($paths: [String!]!, $limit: Int!, $offset: Int!) {
  transaction(
    where: { type: { _eq: "xp" }, path: { _in: $paths } }
    order_by: [{ createdAt: asc }, { id: asc }]
    limit: $limit
    offset: $offset
  ) { id type amount createdAt path object { name } }
}`,
	}

	QueryCheckpointCandidates = Query{
		Name: "CheckpointCandidates",
		Root: "transaction",
		Text: `query CheckpointCandidates($pattern: String!, $min: Int!, $max: Int!, $limit: Int!, $offset: Int!) {
  transaction(
    where: {
      type: { _eq: "xp" }
      path: { _ilike: $pattern }
      amount: { _gte: $min, _lte: $max }
    }
    order_by: [{ createdAt: asc }, { id: asc }]
    limit: $limit
    offset: $offset
  ) { id type amount createdAt path object { name } }
}`,
	}

	QueryExerciseXP = Query{
		Name: "ExerciseXP",
		Root: "transaction",
		Text: `query ExerciseXP($from: timestamptz!, $limit: Int!, $offset: Int!) {
  transaction(
    where: { type: { _eq: "xp" }, createdAt: { _gte: $from } }
    order_by: [{ createdAt: asc }, { id: asc }]
    limit: $limit
    offset: $offset
  ) { id type amount createdAt path object { name } }
}`,
	}
)
