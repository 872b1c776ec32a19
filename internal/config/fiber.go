package config

import (
	pageHandler "ProjectZukan/internal/api/page/handler"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger, env Env) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "Zukan Camera",
			BodyLimit:         20 * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     false,
			CaseSensitive:     true,
			EnablePrintRoutes: env.AppEnv == "development",
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			Views:             pageHandler.NewViewEngine("./web/views", env.AppEnv == "development"),
		})

	return app
}
