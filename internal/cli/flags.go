package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Login      string `short:"u" long:"login" env:"XPDASH_LOGIN" description:"Username or email used to sign in"`
	Password   string `long:"password" env:"XPDASH_PASSWORD" description:"Password used to sign in"`
	Backend    string `long:"backend" env:"DATA_BACKEND" choice:"graphql" choice:"memory" default:"graphql" description:"Data backend"`
	GraphQLURL string `long:"graphql-url" env:"GRAPHQL_URL" default:"https://learn.reboot01.com/api/graphql-engine/v1/graphql" description:"GraphQL endpoint"`
	SigninURL  string `long:"signin-url" env:"SIGNIN_URL" default:"https://learn.reboot01.com/api/auth/signin" description:"Sign-in endpoint"`
	Fixtures   string `long:"fixtures" env:"FIXTURES_PATH" default:"./data/fixtures.json" description:"Fixture file for the memory backend"`
	Heuristics string `long:"heuristics" env:"HEURISTICS_FILE" description:"YAML file overriding the classification heuristics"`
	PageSize   int    `long:"page-size" env:"PAGE_SIZE" default:"1000" description:"Rows per page"`
	MaxPages   int    `long:"max-pages" env:"MAX_PAGES" default:"200" description:"Abort a paginated fetch after this many pages"`
	AsOf       string `long:"as-of" description:"Evaluate the six-month window at this RFC3339 time instead of now"`
	JSON       bool   `long:"json" description:"Output in JSON format"`
	LogLevel   string `long:"log-level" env:"LOG_LEVEL" default:"warn" description:"Log level (debug|info|warn|error)"`
	Version    bool   `long:"version" description:"Show version and exit"`
}

// SummaryCommand prints totals, breakdowns, audit ratio and pass/fail counts.
type SummaryCommand struct {
	env *runEnv
}

// ProjectsCommand prints the per-project XP bars.
type ProjectsCommand struct {
	Limit int `long:"limit" description:"Maximum projects to print (0 for all)" default:"0"`

	env *runEnv
}

// TimelineCommand prints the cumulative XP series for the last six months.
type TimelineCommand struct {
	env *runEnv
}
