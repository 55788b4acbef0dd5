// Package openai implements inference.FragmentExtractor against
// OpenAI-compatible chat completion APIs, including hosted services
// such as Groq.
package openai
