package config

import "time"

type Config struct {
	SampleSize      int
	WsPingInterval  time.Duration
	CorsMaxAge      time.Duration
	ReadBufferSize  int
	WriteBufferSize int
}

func NewConfig() *Config {
	return &Config{
		SampleSize:      100000,
		WsPingInterval:  30 * time.Second,
		CorsMaxAge:      12 * time.Hour,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}
