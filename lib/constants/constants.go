package constants

const (
	// SSM Parameter Store paths shared by both initializer Lambdas.
	SSM_PARAMETER_PATH = "/librechat"
	SSM_DB_HOST        = "/librechat/DB_HOST"
	SSM_DB_PORT        = "/librechat/DB_PORT"
	SSM_DB_NAME        = "/librechat/DB_NAME"
	SSM_DB_SECRET_ID   = "/librechat/DB_SECRET_ID"
	SSM_DB_USER        = "/librechat/DB_USER"
	SSM_DB_PASSWORD    = "/librechat/DB_PASSWORD"
	SSM_SSL_MODE       = "/librechat/SSL_MODE"

	DRIVER_NAME           = "postgres"
	ADMIN_DATABASE        = "postgres"
	DEFAULT_DATABASE      = "librechat"
	DEFAULT_SSL_MODE      = "require"
	POSTGRES_DEFAULT_PORT = "5432"
	POSTGRES_DEFAULT_USER = "postgres"

	DOCDB_DEFAULT_PORT = "27017"
	DOCDB_DEFAULT_USER = "docdbadmin"
	// CA bundle shipped in the Lambda layer; DocumentDB requires TLS.
	DOCDB_CA_FILE     = "/opt/rds-ca-2019-root.pem"
	DOCDB_REPLICA_SET = "rs0"
)
