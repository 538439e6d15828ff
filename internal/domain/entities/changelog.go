package entities

// ChangelogFileName is the Keep-a-Changelog file updated alongside the manifest.
const ChangelogFileName = "CHANGELOG.md"
