// Package logger builds *slog.Logger values with functional options and
// injects scope bound values, most importantly the ambient tenant, into every
// record.
//
// Configuration usually comes from the environment:
//
//	cfg, err := config.Load[logger.Config]()
//	if err != nil {
//		return err
//	}
//	log := logger.New(
//		logger.FromConfig(cfg),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers such as TenantID, Connection and Error keep key names
// consistent. Error and Errors return an empty attribute for nil errors, so
// they can be passed unconditionally.
package logger
