package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/pkg/config"
)

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "roomhive",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := jwtTestConfig()
	now := time.Now().UTC()
	actorID := uuid.New()
	hotelID := uuid.New()

	payload := AccessTokenPayload{
		ActorID: actorID,
		HotelID: &hotelID,
		Role:    RoleManager,
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.ActorID != actorID {
		t.Fatalf("expected actor_id %s, got %s", actorID, claims.ActorID)
	}
	if claims.HotelID == nil || *claims.HotelID != hotelID {
		t.Fatalf("hotel id not preserved")
	}
	if claims.Role != RoleManager {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatalf("expected a generated jti")
	}
}

func TestMintManagerTokenRequiresHotel(t *testing.T) {
	_, err := MintAccessToken(jwtTestConfig(), time.Now(), AccessTokenPayload{
		ActorID: uuid.New(),
		Role:    RoleManager,
	})
	if err == nil {
		t.Fatalf("expected error for manager token without hotel")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := jwtTestConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		ActorID: uuid.New(),
		Role:    RoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := jwtTestConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		ActorID: uuid.New(),
		Role:    RoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected issuer mismatch to be rejected")
	}
}
