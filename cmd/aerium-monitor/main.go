// Command aerium-monitor tails live sensor readings from a running server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"aerium-backend/internal/ws"
	"aerium-backend/internal/wsclient"
)

func main() {
	serverURL := flag.String("server", "http://localhost:5000", "Aerium server base URL")
	token := flag.String("token", os.Getenv("AERIUM_TOKEN"), "access token (defaults to AERIUM_TOKEN)")
	sensorID := flag.Int64("sensor", 0, "subscribe to one sensor ID (0 = all)")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "an access token is required; pass -token or set AERIUM_TOKEN")
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := wsclient.New(*serverURL, *token, logger)

	client.OnStatus(func(connected bool) {
		if connected {
			fmt.Println("* connected")
			if *sensorID != 0 {
				if err := client.Subscribe(*sensorID); err != nil {
					logger.Warn("subscribe failed", zap.Error(err))
				}
			}
			if err := client.RequestData(); err != nil {
				logger.Warn("request_data failed", zap.Error(err))
			}
		} else {
			fmt.Println("* disconnected")
		}
	})

	client.On(ws.EventSensorReading, func(data json.RawMessage) {
		var r ws.ReadingPayload
		if err := json.Unmarshal(data, &r); err != nil {
			return
		}
		name := r.SensorName
		if name == "" {
			name = fmt.Sprintf("sensor %d", r.SensorID)
		}
		fmt.Printf("%-24s  CO2 %6.0f ppm  %5.1f °C  %5.1f %%RH  %s\n",
			name, r.CO2, r.Temperature, r.Humidity, r.Timestamp)
	})

	client.On(ws.EventStatus, func(data json.RawMessage) {
		fmt.Printf("* status: %s\n", string(data))
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("client stopped", zap.Error(err))
	}
}
