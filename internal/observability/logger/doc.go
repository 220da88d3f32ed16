// Package logger expone el logger Zap del gateway: un singleton inicializado
// desde main y loggers "scoped" por request que viajan en el context.
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:         cfg.App.Env,   // "dev" o "prod"
//	    Level:       cfg.Log.Level, // "debug", "info", "warn", "error"
//	    ServiceName: cfg.App.ServiceName,
//	})
//	defer logger.Sync()
//
// En middlewares y en el proxy:
//
//	log := logger.From(r.Context())
//	log.Info("bearer decoded", logger.Outcome("decoded"))
//
// Los valores de credenciales (access-token, client, uid y el bearer
// completo) nunca se loguean. Solo se registran outcomes y etapas.
package logger
