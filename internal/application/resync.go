package application

import (
	"context"

	"github.com/ericfisherdev/keysync/internal/domain/model"
)

// Resync trial-decrypts every credential against every key and repairs the
// associations and lost flags to match. Ciphertexts carry no key identifier,
// so this is O(credentials x keys).
//
// Keys are tried in key store order and the first key that decrypts a
// credential wins. Store order is implementation-defined but stable within
// one snapshot. Credentials are processed one at a time and each credential's
// writes complete before the next is considered, so a cancelled resync leaves
// the stores valid. Resync is safe to re-run, e.g. after a recovered key has
// been admitted.
func (s *KeyService) Resync(ctx context.Context) (model.ResyncReport, error) {
	report, err := s.resync(ctx)
	if err != nil {
		return report, wrap("resync", err)
	}
	return report, nil
}

func (s *KeyService) resync(ctx context.Context) (model.ResyncReport, error) {
	creds, err := s.credentials.List(ctx)
	if err != nil {
		return model.ResyncReport{}, err
	}
	keys, err := s.keys.List(ctx)
	if err != nil {
		return model.ResyncReport{}, err
	}

	report := model.ResyncReport{Credentials: len(creds), Keys: len(keys)}
	for _, cred := range creds {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		resolved, repaired, err := s.resyncCredential(ctx, cred, keys)
		if err != nil {
			return report, err
		}
		if resolved {
			report.Resolved++
		} else {
			report.Lost++
			s.logger.Warn("no known key decrypts credential", "credential_id", cred.ID, "name", cred.Name)
		}
		if repaired {
			report.Repaired++
		}
	}

	s.logger.Info("resync complete",
		"credentials", report.Credentials,
		"keys", report.Keys,
		"resolved", report.Resolved,
		"lost", report.Lost,
		"repaired", report.Repaired,
	)
	return report, nil
}

// resyncCredential resolves a single credential. A key that fails to decrypt
// loses any association with the credential; the first key that succeeds
// becomes its only association.
func (s *KeyService) resyncCredential(ctx context.Context, cred model.Credential, keys []model.KeyMaterial) (resolved, repaired bool, err error) {
	for _, key := range keys {
		if !s.trialDecrypt(cred, key) {
			if err := s.associations.DeleteByKeyAndCredential(ctx, key.ID, cred.ID); err != nil {
				return false, false, err
			}
			continue
		}

		repaired, err = s.associate(ctx, key, cred.ID)
		if err != nil {
			return false, false, err
		}
		resolved = true
		break
	}

	lost := !resolved
	if cred.IsEncryptionKeyLost != lost {
		if err := s.credentials.UpdateIsEncryptionKeyLost(ctx, cred.ID, lost); err != nil {
			return false, false, err
		}
	}
	return resolved, repaired, nil
}

// trialDecrypt reports whether key decrypts cred into a well-formed payload.
// A mismatch is the expected outcome for most pairs and is not an error.
func (s *KeyService) trialDecrypt(cred model.Credential, key model.KeyMaterial) bool {
	_, err := s.decryptWith(cred, key)
	return err == nil
}

// associate makes key the single association of the credential. It reports
// whether existing rows had to be rewritten.
func (s *KeyService) associate(ctx context.Context, key model.KeyMaterial, credentialID int64) (bool, error) {
	existing, err := s.associations.FindByCredentialID(ctx, credentialID)
	if err != nil {
		return false, err
	}

	switch len(existing) {
	case 0:
		return false, s.associations.Create(ctx, key.ID, credentialID)
	case 1:
		if existing[0].KeyID == key.ID {
			return false, nil
		}
		return true, s.associations.UpdateKeyID(ctx, key.ID, credentialID)
	default:
		// Left behind by an interrupted run. Collapse to one row.
		s.logger.Warn("credential has multiple key associations, recreating",
			"credential_id", credentialID,
			"associations", len(existing),
			"key_id", key.ID,
		)
		if err := s.associations.DeleteByCredential(ctx, credentialID); err != nil {
			return false, err
		}
		return true, s.associations.Create(ctx, key.ID, credentialID)
	}
}
