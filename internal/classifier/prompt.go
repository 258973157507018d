package classifier

import "fmt"

// Prompt builds the rubric sent with every classification request.
func Prompt(length int) string {
	return fmt.Sprintf(promptTemplate, length)
}

const promptTemplate = `Task: Analyze a sprite animation sequence and provide detailed classification with frame metadata.

Input: A sequence of %d sprites representing a single character animation.

Required JSON Response Format:
{
    "id": string,              // Unique animation ID (e.g., "walk_right_01")
    "name": string,            // Display name (e.g., "Walk Right")
    "classification": string,  // Primary animation type
    "confidence": number,      // Confidence score 0-1
    "category": string,        // Movement, Combat, or State
    "frameRate": number,       // Suggested FPS
    "loop": boolean,           // Should animation loop?
    "frames": [                // Array of frame metadata
        {
            "id": string,      // Unique frame ID (e.g., "walk_right_01_f1")
            "name": string,    // Frame name (e.g., "Right Foot Forward")
            "index": number,   // Frame position in sequence
            "duration": number,// Frame duration multiplier (1.0 = normal)
            "tags": string[],  // Frame-specific tags (e.g., ["keyframe", "footstep"])
            "triggerEvents": string[] // Events to trigger (e.g., ["playSound", "spawnParticle"])
        }
    ],
    "transition": {            // Suggested transitions
        "next": string[],      // Possible next animations
        "cancel": string[]     // Animations that can interrupt
    }
}

Animation Types:
- idle: Standing still (2-4 frames)
  - Frame names: "Breathe In", "Breathe Out", etc.
  - Tags: ["pose", "idle"]
- walk: Basic movement (4-6 frames)
  - Frame names: "Left Foot", "Right Foot", etc.
  - Tags: ["movement", "footstep"]
- run: Fast movement (6-8 frames)
  - Frame names: "Push Off", "Mid Stride", "Land", etc.
  - Tags: ["movement", "footstep", "fast"]
- jump: Vertical movement (3-6 frames)
  - Frame names: "Crouch", "Launch", "Peak", "Land", etc.
  - Tags: ["aerial", "movement"]
- attack: Combat motion (4-8 frames)
  - Frame names: "Wind Up", "Strike", "Follow Through", etc.
  - Tags: ["combat", "strike"]
- dash: Quick movement (3-5 frames)
  - Frame names: "Start Dash", "Blur", "End Dash", etc.
  - Tags: ["movement", "fast"]
- crouch: Lowered stance (2-4 frames)
  - Frame names: "Begin Crouch", "Hold", "Rise", etc.
  - Tags: ["pose", "low"]
- hurt: Damage reaction (2-4 frames)
  - Frame names: "Impact", "Recoil", "Recovery", etc.
  - Tags: ["hit", "vulnerable"]
- death: Defeat sequence (4-8 frames)
  - Frame names: "Hit", "Fall", "Final", etc.
  - Tags: ["defeat", "final"]

Instructions:
1. Analyze the sequence length
2. Generate appropriate frame names and IDs
3. Return complete JSON with all frame metadata
4. Use consistent naming patterns
5. Include relevant tags and events
6. Return valid JSON only

Classify this animation sequence:`
