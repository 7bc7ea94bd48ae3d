// Command lambda serves the todo API from AWS Lambda behind API Gateway.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todo-api/config"
	"todo-api/handlers"
	"todo-api/logging"
	"todo-api/store"
)

// newHandler wraps r in the adapter matching the API Gateway payload version.
func newHandler(payloadVersion string, r *gin.Engine) any {
	if payloadVersion == config.PayloadV2 {
		adapter := ginadapter.NewV2(r)
		return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
			return adapter.ProxyWithContext(ctx, req)
		}
	}
	adapter := ginadapter.New(r)
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	st, err := store.Open(context.Background(), cfg.Store)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	r := handlers.NewRouter(handlers.New(st, logger), logger)

	lambda.Start(newHandler(cfg.Lambda.PayloadVersion, r))
}
