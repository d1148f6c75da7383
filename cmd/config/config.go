package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

var (
	RunAddress  string
	DatabaseURI string
	LogLevel    string
	JWTSecret   string

	VisionAPIKey   string
	VisionEndpoint string

	ScanAwardPoints int
	ScanCooldown    time.Duration

	SchoolLat            float64
	SchoolLon            float64
	GeofenceRadiusMeters float64

	WindowOpenHour  int
	WindowCloseHour int
)

func ParseFlags() {

	flag.StringVar(&RunAddress, "a", ":8080", "address to run server")
	flag.StringVar(&DatabaseURI, "d", "", "database uri")
	flag.StringVar(&LogLevel, "l", "info", "log level")
	flag.StringVar(&JWTSecret, "s", "ecoscan-dev-secret", "jwt signing secret")
	flag.StringVar(&VisionAPIKey, "k", "", "label detection api key")
	flag.StringVar(&VisionEndpoint, "v", "https://vision.googleapis.com/v1/images:annotate", "label detection endpoint")
	flag.IntVar(&ScanAwardPoints, "p", 20, "points awarded per verified scan")
	flag.DurationVar(&ScanCooldown, "c", 15*time.Minute, "cooldown between awarded scans")
	flag.Float64Var(&SchoolLat, "lat", 33.4255, "school latitude")
	flag.Float64Var(&SchoolLon, "lon", -111.94, "school longitude")
	flag.Float64Var(&GeofenceRadiusMeters, "r", 150, "geofence radius in meters")
	flag.IntVar(&WindowOpenHour, "open", 7, "first hour scans are allowed")
	flag.IntVar(&WindowCloseHour, "close", 16, "first hour scans are no longer allowed")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		RunAddress = envRunAddr
	}
	if databaseURI := os.Getenv("DATABASE_URI"); databaseURI != "" {
		DatabaseURI = databaseURI
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		JWTSecret = jwtSecret
	}
	if visionKey := os.Getenv("VISION_API_KEY"); visionKey != "" {
		VisionAPIKey = visionKey
	}
	if visionEndpoint := os.Getenv("VISION_ENDPOINT"); visionEndpoint != "" {
		VisionEndpoint = visionEndpoint
	}
	if award := os.Getenv("SCAN_AWARD_POINTS"); award != "" {
		if v, err := strconv.Atoi(award); err == nil {
			ScanAwardPoints = v
		}
	}
	if cooldown := os.Getenv("SCAN_COOLDOWN"); cooldown != "" {
		if v, err := time.ParseDuration(cooldown); err == nil {
			ScanCooldown = v
		}
	}
}
