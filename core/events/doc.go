// Package events defines the typed coordination event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant.*
//   - assistant_playback.*
//   - session.*
//
// Semantics used across the package:
//
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Finalized: terminal immutable text frozen for submission.
//   - Started/Ended: lifecycle boundaries; Ended fires exactly once per
//     Started, including on cancellation.
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): speech activity began.
//   - UserSpeechEnded (user_input.speech_ended): speech activity ended.
//   - UserTranscriptUpdated (user_input.transcript_updated): mutable interim
//     transcript snapshot, last-write-wins.
//   - UserUtteranceFinalized (user_input.utterance_finalized): utterance text
//     frozen and submitted.
//
// assistant events
//
//   - AssistantReplyReceived (assistant.reply_received): chat reply arrived.
//   - AssistantReplyFailed (assistant.reply_failed): chat submission failed;
//     no reply was appended.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): speech playback
//     of the current reply started.
//   - AssistantPlaybackEnded (assistant_playback.ended): speech playback
//     ended, naturally or through cancellation.
//
// session events
//
//   - ModeChanged (session.mode_changed): the session mode transitioned.
//   - LiveModeChanged (session.live_mode_changed): live conversation mode was
//     toggled.
package events
